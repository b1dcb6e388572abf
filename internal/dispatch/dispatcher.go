package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-depot-engine/internal/orders"
	"github.com/ariefcatur/go-depot-engine/internal/presence"
)

// Publisher is told about every job change that was saved.
type Publisher interface {
	JobUpdated(ctx context.Context, job Job, reason string)
}

// Dispatcher runs the job state machine. Each operation is a single
// read-modify-write against the JobStore; concurrent writers on the same job
// are resolved by the store's version check, not here.
type Dispatcher struct {
	jobs     JobStore
	orders   DeliveryStatusWriter
	presence Presence
	pub      Publisher
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
	timeout  time.Duration
	gate     bool
}

type option func(*Dispatcher)

func New(jobs JobStore, opts ...option) *Dispatcher {
	d := &Dispatcher{
		jobs:    jobs,
		log:     zap.NewNop(),
		now:     time.Now,
		newID:   uuid.NewString,
		timeout: DefaultAssignTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithDeliveryStatusWriter(w DeliveryStatusWriter) option {
	return func(d *Dispatcher) { d.orders = w }
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithPresence(p Presence) option {
	return func(d *Dispatcher) { d.presence = p }
}

// WithPresenceGate makes Assign refuse drivers that are not currently
// available. Requires WithPresence.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPresenceGate(on bool) option {
	return func(d *Dispatcher) { d.gate = on }
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithPublisher(p Publisher) option {
	return func(d *Dispatcher) { d.pub = p }
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithLogger(l *zap.Logger) option {
	return func(d *Dispatcher) { d.log = l }
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(d *Dispatcher) { d.now = now }
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithIDGenerator(newID func() string) option {
	return func(d *Dispatcher) { d.newID = newID }
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithAssignTimeout(t time.Duration) option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// CreateFromOrder opens a WAITING job for a delivery order. Counter orders
// get nil. An order that already has a job gets that job back.
func (d *Dispatcher) CreateFromOrder(ctx context.Context, o orders.Order) (*Job, error) {
	if !o.IsDelivery() {
		return nil, nil
	}
	if existing, err := d.jobs.GetByOrder(ctx, o.ID); err == nil {
		return &existing, nil
	} else if !errors.Is(err, ErrJobNotFound) {
		return nil, fmt.Errorf("lookup job for order %s: %w", o.ID, err)
	}

	now := d.now()
	j := Job{
		ID:        d.newID(),
		OrderID:   o.ID,
		DepositID: o.DepositID,
		Status:    StatusWaiting,
		Snapshot:  snapshotOf(o),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.jobs.Create(ctx, j); err != nil {
		return nil, fmt.Errorf("create job for order %s: %w", o.ID, err)
	}
	j.Version = 1
	d.log.Info("delivery job created", zap.String("job_id", j.ID), zap.String("order_id", o.ID))
	d.publish(ctx, j, "created")
	return &j, nil
}

func (d *Dispatcher) Assign(ctx context.Context, jobID, driverID string) (*Job, error) {
	if driverID == "" {
		return nil, nil
	}
	if d.gate && d.presence != nil {
		ok, err := d.presence.IsAvailable(ctx, driverID)
		if err != nil {
			return nil, fmt.Errorf("check presence %s: %w", driverID, err)
		}
		if !ok {
			return nil, nil
		}
	}
	j, err := d.mutate(ctx, jobID, func(j *Job, now time.Time) bool {
		if !j.Status.Assignable() {
			return false
		}
		j.Status = StatusAssigned
		j.DriverID = driverID
		j.AssignedAt = ptr(now)
		j.AcceptedAt, j.StartedAt = nil, nil
		j.RefusedAt, j.RefusedBy, j.RefusalReason = nil, "", ""
		return true
	})
	if j != nil {
		d.pushOrder(ctx, j.OrderID, orders.DeliveryPending, "pending delivery")
		d.publish(ctx, *j, "assigned")
	}
	return j, err
}

// Accept succeeds only for the driver the job is assigned to.
func (d *Dispatcher) Accept(ctx context.Context, jobID, driverID string) (*Job, error) {
	j, err := d.mutate(ctx, jobID, func(j *Job, now time.Time) bool {
		if j.Status != StatusAssigned || j.DriverID == "" || j.DriverID != driverID {
			return false
		}
		j.Status = StatusAccepted
		j.AcceptedAt = ptr(now)
		return true
	})
	if j != nil {
		if d.presence != nil {
			if err := d.presence.SetStatus(ctx, driverID, presence.StatusBusy); err != nil {
				d.log.Warn("mark driver busy", zap.String("driver_id", driverID), zap.Error(err))
			}
		}
		d.publish(ctx, *j, "accepted")
	}
	return j, err
}

func (d *Dispatcher) Refuse(ctx context.Context, jobID, driverID, reason string) (*Job, error) {
	j, err := d.mutate(ctx, jobID, func(j *Job, now time.Time) bool {
		if j.Status != StatusAssigned {
			return false
		}
		j.Status = StatusWaiting
		j.clearAssignment()
		j.RefusedAt = ptr(now)
		j.RefusedBy = driverID
		j.RefusalReason = reason
		return true
	})
	if j != nil {
		d.publish(ctx, *j, reason)
	}
	return j, err
}

func (d *Dispatcher) Start(ctx context.Context, jobID string) (*Job, error) {
	j, err := d.mutate(ctx, jobID, func(j *Job, now time.Time) bool {
		if j.Status != StatusAccepted {
			return false
		}
		j.Status = StatusEnRoute
		j.StartedAt = ptr(now)
		return true
	})
	if j != nil {
		d.pushOrder(ctx, j.OrderID, orders.DeliveryInTransit, "out for delivery")
		d.publish(ctx, *j, "started")
	}
	return j, err
}

func (d *Dispatcher) Complete(ctx context.Context, jobID string) (*Job, error) {
	j, err := d.mutate(ctx, jobID, func(j *Job, now time.Time) bool {
		if j.Status != StatusEnRoute {
			return false
		}
		j.Status = StatusDelivered
		j.CompletedAt = ptr(now)
		return true
	})
	if j != nil {
		d.pushOrder(ctx, j.OrderID, orders.DeliveryDone, "delivered")
		d.publish(ctx, *j, "delivered")
	}
	return j, err
}

// Fail records a delivery that came back undelivered. The job can be
// assigned again.
func (d *Dispatcher) Fail(ctx context.Context, jobID, reason string) (*Job, error) {
	j, err := d.mutate(ctx, jobID, func(j *Job, now time.Time) bool {
		if j.Status != StatusEnRoute {
			return false
		}
		j.Status = StatusReturnedFailed
		j.FailureReason = reason
		j.clearAssignment()
		return true
	})
	if j != nil {
		d.publish(ctx, *j, reason)
	}
	return j, err
}

func (d *Dispatcher) Cancel(ctx context.Context, jobID, reason string) (*Job, error) {
	j, err := d.mutate(ctx, jobID, func(j *Job, now time.Time) bool {
		if j.Status.Terminal() {
			return false
		}
		j.Status = StatusCancelled
		j.CancelReason = reason
		return true
	})
	if j != nil {
		d.pushOrder(ctx, j.OrderID, orders.DeliveryCancelled, reason)
		d.publish(ctx, *j, reason)
	}
	return j, err
}

// SweepTimeouts puts back every ASSIGNED job whose driver has not answered
// within the assign timeout. Jobs changed by someone else since they were
// read are skipped, so concurrent or repeated sweeps are harmless.
func (d *Dispatcher) SweepTimeouts(ctx context.Context) ([]Job, error) {
	assigned, err := d.jobs.ListByStatus(ctx, StatusAssigned)
	if err != nil {
		return nil, fmt.Errorf("list assigned jobs: %w", err)
	}
	now := d.now()
	var reverted []Job
	for _, j := range assigned {
		if j.AssignedAt == nil || now.Sub(*j.AssignedAt) <= d.timeout {
			continue
		}
		driver := j.DriverID
		j.Status = StatusWaiting
		j.clearAssignment()
		j.RefusedAt = ptr(now)
		j.RefusedBy = driver
		j.RefusalReason = ReasonNoResponse
		j.UpdatedAt = now

		saved, err := d.jobs.Save(ctx, j)
		if errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrJobNotFound) {
			continue
		}
		if err != nil {
			return reverted, fmt.Errorf("revert job %s: %w", j.ID, err)
		}
		d.log.Info("assignment timed out", zap.String("job_id", saved.ID), zap.String("driver_id", driver))
		d.publish(ctx, saved, ReasonNoResponse)
		reverted = append(reverted, saved)
	}
	return reverted, nil
}

// Candidates lists the drivers a job may be offered to.
func (d *Dispatcher) Candidates(ctx context.Context) ([]presence.Presence, error) {
	if d.presence == nil {
		return nil, nil
	}
	return d.presence.Available(ctx)
}

func (d *Dispatcher) Get(ctx context.Context, jobID string) (Job, error) {
	return d.jobs.Get(ctx, jobID)
}

func (d *Dispatcher) List(ctx context.Context, statuses ...Status) ([]Job, error) {
	return d.jobs.ListByStatus(ctx, statuses...)
}

// mutate loads the job, lets apply change it and saves it. apply returning
// false means the operation does not apply: nothing is written and the
// result is nil.
func (d *Dispatcher) mutate(ctx context.Context, jobID string, apply func(j *Job, now time.Time) bool) (*Job, error) {
	j, err := d.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	now := d.now()
	if !apply(&j, now) {
		return nil, nil
	}
	j.UpdatedAt = now
	saved, err := d.jobs.Save(ctx, j)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (d *Dispatcher) pushOrder(ctx context.Context, orderID string, st orders.DeliveryStatus, note string) {
	if d.orders == nil {
		return
	}
	if err := d.orders.SetDeliveryStatus(ctx, orderID, st, note); err != nil {
		d.log.Warn("push delivery status", zap.String("order_id", orderID), zap.String("status", string(st)), zap.Error(err))
	}
}

func (d *Dispatcher) publish(ctx context.Context, j Job, reason string) {
	if d.pub != nil {
		d.pub.JobUpdated(ctx, j, reason)
	}
}
