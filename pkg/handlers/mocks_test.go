package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/mediakeep/mediakeep-engine/pkg/models"
	"github.com/mediakeep/mediakeep-engine/pkg/services"
)

type mockImportService struct {
	submit func(ctx context.Context, userID uuid.UUID) (*models.ImportJob, error)
	status func(ctx context.Context, userID uuid.UUID, taskID string) (*models.ImportJob, error)
}

func (m *mockImportService) Submit(ctx context.Context, userID uuid.UUID) (*models.ImportJob, error) {
	return m.submit(ctx, userID)
}

func (m *mockImportService) Status(ctx context.Context, userID uuid.UUID, taskID string) (*models.ImportJob, error) {
	return m.status(ctx, userID, taskID)
}

type mockWebhookService struct {
	handleEvent func(ctx context.Context, token string, rawPayload []byte) (*services.WebhookResult, error)
}

func (m *mockWebhookService) HandleEvent(ctx context.Context, token string, rawPayload []byte) (*services.WebhookResult, error) {
	return m.handleEvent(ctx, token, rawPayload)
}
