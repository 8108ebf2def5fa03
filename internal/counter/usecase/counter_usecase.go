package usecase

import (
	"context"
	"errors"

	"thing-counter/internal/counter/domain/model"
	"thing-counter/internal/counter/domain/repository"
	apperrors "thing-counter/internal/shared/errors"
	"thing-counter/internal/shared/eventbus"
	"thing-counter/internal/shared/logger"
	"thing-counter/internal/shared/utils"
)

// CounterUsecase holds the counter operations exposed to the API. The uid
// argument is the owner taken from the path; the caller comes from ctx.
type CounterUsecase interface {
	CreateCounter(ctx context.Context, uid, name string) (*model.Counter, error)
	GetCounter(ctx context.Context, uid, id string) (*model.Counter, error)
	ListCounters(ctx context.Context, uid string) ([]*model.Counter, error)
	Increase(ctx context.Context, uid, id string, delta int64) (*model.Counter, error)
	ChangeCounterName(ctx context.Context, uid, id, name string) (*model.Counter, error)
	DeleteCounter(ctx context.Context, uid, id string) error
	Watch(ctx context.Context, uid string) (<-chan model.Snapshot, error)
}

type counterUsecaseImpl struct {
	repo            repository.CounterRepository
	feed            repository.ChangeFeed
	policy          AccessPolicy
	bus             eventbus.EventBusInterface
	atomicIncrement bool
	writes          *userLocks
	log             logger.Logger
}

// NewCounterUsecase wires the counter use cases. With atomicIncrement set,
// Increase delegates to the repository's server-side increment; otherwise it
// reads the value and writes value+delta back.
func NewCounterUsecase(
	repo repository.CounterRepository,
	feed repository.ChangeFeed,
	policy AccessPolicy,
	bus eventbus.EventBusInterface,
	atomicIncrement bool,
	log logger.Logger,
) CounterUsecase {
	return &counterUsecaseImpl{
		repo:            repo,
		feed:            feed,
		policy:          policy,
		bus:             bus,
		atomicIncrement: atomicIncrement,
		writes:          newUserLocks(),
		log:             log.WithComponent("counter_usecase"),
	}
}

func (uc *counterUsecaseImpl) CreateCounter(ctx context.Context, uid, name string) (*model.Counter, error) {
	normalized, err := model.NormalizeName(name)
	if err != nil {
		return nil, apperrors.NewValidationError("counter name cannot be empty").WithCause(err)
	}
	if err := uc.authorizeWrite(ctx, uid, "", map[string]interface{}{"name": normalized}); err != nil {
		return nil, err
	}

	unlock := uc.writes.lock(uid)
	defer unlock()

	counter, err := uc.repo.Create(ctx, uid, normalized)
	if err != nil {
		uc.log.WithContext(ctx).WithFields(map[string]interface{}{"uid": uid}).Errorf("Failed to create counter: %v", err)
		return nil, repoError(err, "create counter")
	}

	uc.log.WithContext(ctx).WithFields(map[string]interface{}{
		"uid":        uid,
		"counter_id": counter.ID,
	}).Info("Counter created")
	uc.publish(ctx, uid, model.ChangeAdded, counter)
	return counter, nil
}

func (uc *counterUsecaseImpl) GetCounter(ctx context.Context, uid, id string) (*model.Counter, error) {
	if err := uc.authorizeRead(ctx, uid, id); err != nil {
		return nil, err
	}
	counter, err := uc.repo.Get(ctx, uid, id)
	if err != nil {
		return nil, repoError(err, "get counter")
	}
	return counter, nil
}

func (uc *counterUsecaseImpl) ListCounters(ctx context.Context, uid string) ([]*model.Counter, error) {
	if err := uc.authorizeRead(ctx, uid, ""); err != nil {
		return nil, err
	}
	counters, err := uc.repo.List(ctx, uid)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("Failed to list counters for %s: %v", uid, err)
		return nil, repoError(err, "list counters")
	}
	return counters, nil
}

func (uc *counterUsecaseImpl) Increase(ctx context.Context, uid, id string, delta int64) (*model.Counter, error) {
	if delta == 0 {
		return nil, apperrors.NewValidationError("delta must be non-zero").WithCause(model.ErrInvalidDelta)
	}
	if err := uc.authorizeWrite(ctx, uid, id, map[string]interface{}{"delta": delta}); err != nil {
		return nil, err
	}

	unlock := uc.writes.lock(uid)
	defer unlock()

	var (
		counter *model.Counter
		err     error
	)
	if uc.atomicIncrement {
		counter, err = uc.repo.Increment(ctx, uid, id, delta)
	} else {
		// Last write wins across instances: two servers may both read the
		// same value and one increment is lost.
		var current *model.Counter
		current, err = uc.repo.Get(ctx, uid, id)
		if err == nil {
			counter, err = uc.repo.SetValue(ctx, uid, id, current.Value+delta)
		}
	}
	if err != nil {
		uc.log.WithContext(ctx).WithFields(map[string]interface{}{
			"uid":        uid,
			"counter_id": id,
			"delta":      delta,
		}).Errorf("Failed to increase counter: %v", err)
		return nil, repoError(err, "increase counter")
	}

	uc.publish(ctx, uid, model.ChangeModified, counter)
	return counter, nil
}

func (uc *counterUsecaseImpl) ChangeCounterName(ctx context.Context, uid, id, name string) (*model.Counter, error) {
	normalized, err := model.NormalizeName(name)
	if err != nil {
		return nil, apperrors.NewValidationError("counter name cannot be empty").WithCause(err)
	}
	if err := uc.authorizeWrite(ctx, uid, id, map[string]interface{}{"name": normalized}); err != nil {
		return nil, err
	}

	unlock := uc.writes.lock(uid)
	defer unlock()

	counter, err := uc.repo.Rename(ctx, uid, id, normalized)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("Failed to rename counter %s: %v", id, err)
		return nil, repoError(err, "rename counter")
	}

	uc.publish(ctx, uid, model.ChangeModified, counter)
	return counter, nil
}

func (uc *counterUsecaseImpl) DeleteCounter(ctx context.Context, uid, id string) error {
	if err := uc.authorizeWrite(ctx, uid, id, nil); err != nil {
		return err
	}

	unlock := uc.writes.lock(uid)
	defer unlock()

	counter, err := uc.repo.Delete(ctx, uid, id)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("Failed to delete counter %s: %v", id, err)
		return repoError(err, "delete counter")
	}

	uc.log.WithContext(ctx).WithFields(map[string]interface{}{
		"uid":        uid,
		"counter_id": id,
	}).Info("Counter deleted")
	uc.publish(ctx, uid, model.ChangeRemoved, counter)
	return nil
}

func (uc *counterUsecaseImpl) Watch(ctx context.Context, uid string) (<-chan model.Snapshot, error) {
	if err := uc.authorizeRead(ctx, uid, ""); err != nil {
		return nil, err
	}
	snapshots, err := uc.feed.Watch(ctx, uid)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("Failed to start watch for %s: %v", uid, err)
		return nil, repoError(err, "watch counters")
	}
	return snapshots, nil
}

func (uc *counterUsecaseImpl) authorizeRead(ctx context.Context, uid, id string) error {
	return uc.policy.CanRead(ctx, accessRequest(ctx, uid, id, nil))
}

func (uc *counterUsecaseImpl) authorizeWrite(ctx context.Context, uid, id string, fields map[string]interface{}) error {
	return uc.policy.CanWrite(ctx, accessRequest(ctx, uid, id, fields))
}

func accessRequest(ctx context.Context, uid, id string, fields map[string]interface{}) AccessRequest {
	authUID, _ := utils.GetUserIDFromContext(ctx)
	email, _ := utils.GetUserEmailFromContext(ctx)
	return AccessRequest{
		AuthUID:   authUID,
		AuthEmail: email,
		PathUID:   uid,
		CounterID: id,
		Fields:    fields,
	}
}

// publish emits counter.changed once a write is stored. Callers hold the
// uid's write lock. A failure here does not fail the write; listeners resync
// on their next watch.
func (uc *counterUsecaseImpl) publish(ctx context.Context, uid string, changeType model.ChangeType, counter *model.Counter) {
	if uc.bus == nil || counter == nil {
		return
	}
	event := eventbus.NewEvent(eventbus.EventTypeCounterChanged, uid, model.ChangeEvent{
		UserID: uid,
		Change: model.Change{Type: changeType, Counter: *counter},
	}, "counter_usecase")
	if err := uc.bus.Publish(ctx, event); err != nil {
		uc.log.WithContext(ctx).Warnf("Failed to publish %s for %s: %v", changeType, counter.ID, err)
	}
}

func repoError(err error, op string) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	if errors.Is(err, model.ErrCounterNotFound) {
		return apperrors.NewNotFoundError("counter").WithCause(err)
	}
	return apperrors.NewInfrastructureError("failed to " + op).WithCause(err)
}
