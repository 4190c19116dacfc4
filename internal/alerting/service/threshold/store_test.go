package threshold

import (
	"context"
	"errors"
	"testing"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
)

func f(v float64) *float64 { return &v }

type denyGate struct{}

func (denyGate) CanModifyThresholds(context.Context, string) (bool, error) { return false, nil }

type failingRepo struct{}

func (failingRepo) Get(context.Context, string) (*model.ThresholdSet, error) {
	return nil, errors.New("boom")
}
func (failingRepo) Put(context.Context, string, model.ThresholdSet) error {
	return errors.New("boom")
}

func TestGetThresholdsDefaultsWhenEmpty(t *testing.T) {
	s := NewStore(NewMemoryRepo(), nil)
	got := s.GetThresholds(context.Background(), "ws-1")
	if got.Memory.Warning == nil || *got.Memory.Warning != 80 {
		t.Fatalf("expected default memory warning 80, got %v", got.Memory.Warning)
	}
	if got.ConsumerUtilization.Critical != nil {
		t.Fatalf("consumer utilization must not carry a critical bound")
	}
}

func TestGetThresholdsFallsBackOnRepoError(t *testing.T) {
	s := NewStore(failingRepo{}, nil)
	got := s.GetThresholds(context.Background(), "ws-1")
	if got.DiskFree.Critical == nil || *got.DiskFree.Critical != 10 {
		t.Fatalf("expected defaults on repo failure, got %+v", got.DiskFree)
	}
}

func TestUpdateThresholdsPartialMerge(t *testing.T) {
	s := NewStore(NewMemoryRepo(), nil)
	ctx := context.Background()

	effective, err := s.UpdateThresholds(ctx, "ws-1", model.ThresholdSet{
		Memory: model.Bound{Warning: f(70)},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if *effective.Memory.Warning != 70 || *effective.Memory.Critical != 90 {
		t.Fatalf("expected merged memory {70,90}, got {%v,%v}", *effective.Memory.Warning, *effective.Memory.Critical)
	}

	// second partial update must not clobber the first
	effective, err = s.UpdateThresholds(ctx, "ws-1", model.ThresholdSet{
		QueueMessages: model.Bound{Warning: f(1000)},
	})
	if err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	if *effective.Memory.Warning != 70 {
		t.Fatalf("earlier memory override lost: %v", *effective.Memory.Warning)
	}
	if *effective.QueueMessages.Warning != 1000 {
		t.Fatalf("queue override not applied: %v", *effective.QueueMessages.Warning)
	}
}

func TestUpdateThresholdsRejectsInvertedBounds(t *testing.T) {
	s := NewStore(NewMemoryRepo(), nil)
	ctx := context.Background()

	_, err := s.UpdateThresholds(ctx, "ws-1", model.ThresholdSet{
		Memory: model.Bound{Warning: f(95)}, // merged critical stays 90
	})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// nothing persisted on rejection
	got := s.GetThresholds(ctx, "ws-1")
	if *got.Memory.Warning != 80 {
		t.Fatalf("rejected update leaked into storage: %v", *got.Memory.Warning)
	}
}

func TestUpdateThresholdsDiskFreeDirectionality(t *testing.T) {
	s := NewStore(NewMemoryRepo(), nil)
	ctx := context.Background()

	// disk free is lower-is-worse: critical must stay below warning
	if _, err := s.UpdateThresholds(ctx, "ws-1", model.ThresholdSet{
		DiskFree: model.Bound{Warning: f(15), Critical: f(5)},
	}); err != nil {
		t.Fatalf("valid inverted-direction update rejected: %v", err)
	}
	if _, err := s.UpdateThresholds(ctx, "ws-1", model.ThresholdSet{
		DiskFree: model.Bound{Warning: f(5), Critical: f(15)},
	}); err == nil {
		t.Fatal("expected rejection of disk free critical above warning")
	}
}

func TestUpdateThresholdsPlanGate(t *testing.T) {
	s := NewStore(NewMemoryRepo(), denyGate{})
	_, err := s.UpdateThresholds(context.Background(), "ws-1", model.ThresholdSet{
		Memory: model.Bound{Warning: f(70)},
	})
	if !errors.Is(err, ErrPermission) {
		t.Fatalf("expected ErrPermission, got %v", err)
	}
}

func TestValidateSkipsHalfSetBounds(t *testing.T) {
	// only warning present after merge: no ordering check possible
	set := model.ThresholdSet{Memory: model.Bound{Warning: f(99)}}
	if err := set.Validate(); err != nil {
		t.Fatalf("half-set bound must not fail validation: %v", err)
	}
}
