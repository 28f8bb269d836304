package service

import (
	"context"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// WatchHistoryService reads the records written when tickets are redeemed.
type WatchHistoryService struct {
	tx repository.Transactor
}

func NewWatchHistoryService(tx repository.Transactor) *WatchHistoryService {
	return &WatchHistoryService{tx: tx}
}

// ListForUser returns the user's watch history, most recent first.
func (s *WatchHistoryService) ListForUser(ctx context.Context, userID string) ([]model.WatchHistory, error) {
	var history []model.WatchHistory
	err := s.tx.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		var err error
		history, err = uow.WatchHistory().ListByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}
