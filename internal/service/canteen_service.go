package service

import (
	"log"

	"github.com/campus-eats/canteen-platform/internal/domain"
	"github.com/campus-eats/canteen-platform/pkg/events"
	"github.com/google/uuid"
)

type CanteenStore interface {
	ReadCanteen(canteenID uuid.UUID) (*domain.Canteen, error)
	WriteCanteen(canteen *domain.Canteen) error
	ListCanteens() ([]*domain.Canteen, error)
}

type CanteenService struct {
	store     CanteenStore
	publisher EventPublisher
}

func NewCanteenService(store CanteenStore, publisher EventPublisher) *CanteenService {
	return &CanteenService{
		store:     store,
		publisher: publisher,
	}
}

func (s *CanteenService) ListCanteens() ([]*domain.Canteen, error) {
	return s.store.ListCanteens()
}

func (s *CanteenService) GetCanteen(canteenID uuid.UUID) (*domain.Canteen, error) {
	return s.store.ReadCanteen(canteenID)
}

// SetOpen flips a canteen between open and closed and broadcasts the change.
func (s *CanteenService) SetOpen(canteenID uuid.UUID, open bool) (*domain.Canteen, error) {
	canteen, err := s.store.ReadCanteen(canteenID)
	if err != nil {
		return nil, err
	}

	canteen.SetOpen(open)

	if err := s.store.WriteCanteen(canteen); err != nil {
		return nil, err
	}

	log.Printf("Canteen status changed: CanteenID=%s, Open=%t", canteen.ID, canteen.IsOpen)

	s.publisher.Publish(events.NewCanteenStatus(canteen.ID, canteen.Name, canteen.IsOpen, canteen.UpdatedAt))

	return canteen, nil
}
