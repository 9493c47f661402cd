package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/spf13/cobra"

	"github.com/artiefy/course-actions/internal/adapter"
	"github.com/artiefy/course-actions/internal/models"
	"github.com/artiefy/course-actions/pkg/logger"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run as an AWS Lambda function behind an agent action group",
	RunE: func(cmd *cobra.Command, args []string) error {
		ad, err := newAdapter(cfg)
		if err != nil {
			return err
		}

		lambda.Start(lambdaHandler(ad))
		return nil
	},
}

// lambdaHandler never returns an error: failures are reported inside the envelope
func lambdaHandler(ad *adapter.Adapter) func(context.Context, json.RawMessage) (*models.ResponseEnvelope, error) {
	return func(ctx context.Context, payload json.RawMessage) (*models.ResponseEnvelope, error) {
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			ctx = logger.ContextWithTraceID(ctx, lc.AwsRequestID)
		}
		return ad.Handle(ctx, payload), nil
	}
}
