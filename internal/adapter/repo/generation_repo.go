package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"photobot/internal/domain"
	"photobot/internal/infra"
	"photobot/internal/sqlinline"
)

// GenerationRepositoryPG implements domain.GenerationRepository.
type GenerationRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewGenerationRepository creates a generation repository backed by PostgreSQL.
func NewGenerationRepository(sql infra.SQLExecutor) *GenerationRepositoryPG {
	return &GenerationRepositoryPG{sql: sql}
}

// Create inserts a new PENDING generation record.
func (r *GenerationRepositoryPG) Create(ctx context.Context, gen *domain.Generation) error {
	inputRefs, err := json.Marshal(gen.InputRefs)
	if err != nil {
		return fmt.Errorf("encode input refs: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertGeneration,
		gen.ID,
		gen.UserID,
		gen.Kind,
		gen.Status,
		inputRefs,
		gen.ChatID,
		gen.MessageID,
	)
	return err
}

// GetByID fetches a generation by its identifier.
func (r *GenerationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectGeneration, id)
	var (
		gen         domain.Generation
		inputRefs   []byte
		outputRefs  []byte
		errMsg      *string
		providerRef *string
	)
	if err := row.Scan(
		&gen.ID,
		&gen.UserID,
		&gen.Kind,
		&gen.Status,
		&inputRefs,
		&outputRefs,
		&errMsg,
		&providerRef,
		&gen.ChatID,
		&gen.MessageID,
		&gen.CostPaid,
		&gen.CreatedAt,
		&gen.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(inputRefs) > 0 {
		if err := json.Unmarshal(inputRefs, &gen.InputRefs); err != nil {
			return nil, fmt.Errorf("decode input refs: %w", err)
		}
	}
	if len(outputRefs) > 0 {
		if err := json.Unmarshal(outputRefs, &gen.OutputRefs); err != nil {
			return nil, fmt.Errorf("decode output refs: %w", err)
		}
	}
	if errMsg != nil {
		gen.ErrorMessage = *errMsg
	}
	if providerRef != nil {
		gen.ProviderRef = *providerRef
	}
	return &gen, nil
}

// MarkProcessing records the debited cost and moves the record to PROCESSING.
func (r *GenerationRepositoryPG) MarkProcessing(ctx context.Context, id string, costPaid int) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkGenerationProcessing, id, costPaid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyFinal
	}
	return nil
}

// SetProviderRef stores the asynchronous provider tracking identifier.
func (r *GenerationRepositoryPG) SetProviderRef(ctx context.Context, id, providerRef string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QSetGenerationProviderRef, id, providerRef)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyFinal
	}
	return nil
}

// MarkCompleted persists output references and closes the record.
func (r *GenerationRepositoryPG) MarkCompleted(ctx context.Context, id string, outputRefs []string) error {
	outputs, err := json.Marshal(outputRefs)
	if err != nil {
		return fmt.Errorf("encode output refs: %w", err)
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkGenerationCompleted, id, outputs)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyFinal
	}
	return nil
}

// MarkFailed records the failure cause and closes the record.
func (r *GenerationRepositoryPG) MarkFailed(ctx context.Context, id, errMsg string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkGenerationFailed, id, errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyFinal
	}
	return nil
}

var _ domain.GenerationRepository = (*GenerationRepositoryPG)(nil)
