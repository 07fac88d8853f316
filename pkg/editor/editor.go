// Package editor drives the employee edit workflow: loading a record into a
// form, live validation messages, and create, update or delete against a
// remote resource.
//
// Every reaction of a Controller runs on its own loop goroutine. Debounce
// timers and remote results are handed to that loop, so controller state is
// never shared between goroutines.
package editor

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/quiby-ai/staffdesk/pkg/employee"
	"github.com/quiby-ai/staffdesk/pkg/events"
	"github.com/quiby-ai/staffdesk/pkg/form"
	"github.com/quiby-ai/staffdesk/pkg/loop"
	"github.com/quiby-ai/staffdesk/pkg/obs"
	"github.com/quiby-ai/staffdesk/pkg/stream"
)

// Resource is the remote store of employee records.
type Resource interface {
	Get(ctx context.Context, id string) (employee.Employee, error)
	Create(ctx context.Context, e employee.Employee) (employee.Employee, error)
	Update(ctx context.Context, e employee.Employee) (employee.Employee, error)
	Delete(ctx context.Context, id string) error
}

// Navigator leaves the edit view. It is called on the controller loop and
// must not call back into the Controller synchronously.
type Navigator interface {
	Navigate(route string)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// Publisher announces completed changes.
type Publisher interface {
	Publish(ctx context.Context, change events.RecordChanged) error
}

type Option func(*Controller)

// WithDebounce sets the quiet period before a validation pass.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

func WithScheduler(s stream.Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.pub = p }
}

// WithOnChange registers fn to receive the view after every reaction. fn runs
// on the controller loop and must not call back into the Controller
// synchronously.
func WithOnChange(fn func(View)) Option {
	return func(c *Controller) { c.onChange = fn }
}

func WithRules(rules form.RuleSet) Option {
	return func(c *Controller) { c.rules = rules }
}

// publishTimeout bounds a change event sent after a successful save.
const publishTimeout = 5 * time.Second

const (
	opGet    = "get"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// Controller owns one edit form. Fields below loop are only touched from
// loop tasks.
type Controller struct {
	res      Resource
	nav      Navigator
	confirm  Confirmer
	pub      Publisher
	onChange func(View)
	rules    form.RuleSet
	debounce time.Duration
	sched    stream.Scheduler

	loop        *loop.Loop
	inflight    sync.WaitGroup
	destroyOnce sync.Once

	actions metric.Int64Counter
	passes  metric.Int64Counter

	form      *form.Form
	validator *form.GenericValidator
	blurs     map[string]*stream.Subject[struct{}]
	pipeline  stream.Subscription
	state     State
	title     string
	record    employee.Employee
	loaded    bool
	messages  map[string]string
	errMsg    string
	completed bool
	destroyed bool
	epoch     uint64
}

func New(res Resource, nav Navigator, confirm Confirmer, opts ...Option) *Controller {
	c := &Controller{
		res:      res,
		nav:      nav,
		confirm:  confirm,
		pub:      events.NopPublisher{},
		rules:    DefaultRules,
		debounce: stream.DefaultDebounce,
		sched:    stream.SystemScheduler{},
		loop:     loop.New(64),
		state:    Loading,
		title:    TitleDefault,
		messages: map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.form = form.New(c.rules, employee.Fields...)
	c.validator = form.NewGenericValidator(c.rules)

	var err error
	if c.actions, err = obs.Counter("staffdesk_editor_actions_total", "Edit workflow actions by operation and outcome"); err != nil {
		c.actions = noop.Int64Counter{}
	}
	if c.passes, err = obs.Counter("staffdesk_editor_validation_passes_total", "Debounced validation passes"); err != nil {
		c.passes = noop.Int64Counter{}
	}
	return c
}

// Start runs the controller loop until ctx ends or Destroy is called.
func (c *Controller) Start(ctx context.Context) {
	c.loop.Start(ctx)
}

// Destroy releases the validation pipeline and stops the loop. Remote results
// arriving afterwards are discarded.
func (c *Controller) Destroy() {
	c.destroyOnce.Do(func() {
		teardown := func() {
			c.destroyed = true
			c.release()
		}
		if err := c.loop.Do(context.Background(), teardown); err != nil {
			teardown()
		}
		c.loop.Stop()
	})
}

// Wait blocks until every remote call dispatched so far has been applied or
// dropped and its change event, if any, has been sent.
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Attach wires the validation pipeline to the given fields, or to every form
// field when none are given. Blur and value-change events are merged and
// debounced; each quiet period ends in one validation pass. Attaching again
// replaces the previous pipeline.
func (c *Controller) Attach(ctx context.Context, fields ...string) error {
	var attachErr error
	err := c.loop.Do(ctx, func() {
		if c.destroyed {
			attachErr = loop.ErrStopped
			return
		}
		if len(fields) == 0 {
			fields = c.form.Fields()
		}
		known := map[string]bool{}
		for _, f := range c.form.Fields() {
			known[f] = true
		}
		for _, f := range fields {
			if !known[f] {
				attachErr = fmt.Errorf("%w: %q", form.ErrUnknownField, f)
				return
			}
		}

		c.release()

		c.blurs = make(map[string]*stream.Subject[struct{}], len(fields))
		sources := []stream.Stream[struct{}]{
			stream.Map(c.form.ValueChanges(), func(map[string]string) struct{} { return struct{}{} }),
		}
		for _, f := range fields {
			s := stream.NewSubject[struct{}]()
			c.blurs[f] = s
			sources = append(sources, s)
		}

		trigger := stream.Debounce(stream.Merge(sources...), c.debounce, c.sched)
		c.pipeline = trigger.Subscribe(func(struct{}) {
			c.loop.Post(c.validationPass)
		})
		obs.Debug(ctx, "validation pipeline attached", "fields", len(fields))
	})
	if err != nil {
		return err
	}
	return attachErr
}

func (c *Controller) release() {
	if c.pipeline != nil {
		c.pipeline.Unsubscribe()
		c.pipeline = nil
	}
	c.blurs = nil
}

// validationPass recomputes the display messages from the live form state.
func (c *Controller) validationPass() {
	if c.destroyed {
		return
	}
	c.messages = c.validator.ProcessMessages(c.form.States())
	c.passes.Add(context.Background(), 1)
	c.notify()
}

// SetValue applies user input to field.
func (c *Controller) SetValue(ctx context.Context, field, value string) error {
	var setErr error
	err := c.loop.Do(ctx, func() {
		setErr = c.form.SetValue(field, value)
		c.notify()
	})
	if err != nil {
		return err
	}
	return setErr
}

// Blur marks field as visited and feeds its blur stream.
func (c *Controller) Blur(ctx context.Context, field string) error {
	var blurErr error
	err := c.loop.Do(ctx, func() {
		if blurErr = c.form.MarkTouched(field); blurErr != nil {
			return
		}
		if s, ok := c.blurs[field]; ok {
			s.Emit(struct{}{})
		}
		c.notify()
	})
	if err != nil {
		return err
	}
	return blurErr
}

// Initialize starts editing id. The sentinel id opens an empty record at
// once; any other id is fetched in the background.
func (c *Controller) Initialize(ctx context.Context, id string) error {
	return c.loop.Do(ctx, func() {
		c.epoch++
		c.errMsg = ""
		c.completed = false
		c.loaded = false
		c.state = Loading

		if id == employee.NewID {
			c.displayRecord(employee.New())
			c.notify()
			return
		}

		c.dispatch(ctx, opGet, func(ctx context.Context) (employee.Employee, error) {
			return c.res.Get(ctx, id)
		})
		c.notify()
	})
}

// DisplayRecord loads e into the form, clearing every dirty and touched flag.
func (c *Controller) DisplayRecord(ctx context.Context, e employee.Employee) error {
	return c.loop.Do(ctx, func() {
		c.displayRecord(e)
		c.notify()
	})
}

func (c *Controller) displayRecord(e employee.Employee) {
	c.form.Reset()
	c.record = e
	c.loaded = true
	c.state = Editing
	if e.IsNew() {
		c.title = TitleAdd
	} else {
		c.title = fmt.Sprintf(titleEdit, e.Name)
	}
	c.form.Patch(e.Values())
}

// Save validates the form and creates or updates the record. A clean form
// completes without a remote call.
func (c *Controller) Save(ctx context.Context) error {
	return c.loop.Do(ctx, func() {
		if !c.actionable() {
			obs.Debug(ctx, "save ignored", "state", c.state.String())
			return
		}
		c.errMsg = ""

		if !c.form.Valid() {
			c.errMsg = MsgCorrectErrors
			c.count(ctx, "save", obs.StatusRejected)
			c.notify()
			return
		}
		if !c.form.Dirty() {
			c.count(ctx, "save", obs.StatusSkipped)
			c.complete(ctx)
			return
		}

		rec := c.record.Merge(c.form.Values())
		c.state = Saving
		if rec.IsNew() {
			c.dispatch(ctx, opCreate, func(ctx context.Context) (employee.Employee, error) {
				return c.res.Create(ctx, rec)
			})
		} else {
			c.dispatch(ctx, opUpdate, func(ctx context.Context) (employee.Employee, error) {
				return c.res.Update(ctx, rec)
			})
		}
		c.notify()
	})
}

// Delete removes the record after the user confirms. An unsaved record
// completes without asking. The question is asked on the caller's goroutine
// so the loop keeps serving input meanwhile.
func (c *Controller) Delete(ctx context.Context) error {
	var (
		prompt string
		epoch  uint64
	)
	err := c.loop.Do(ctx, func() {
		if !c.actionable() {
			obs.Debug(ctx, "delete ignored", "state", c.state.String())
			return
		}
		c.errMsg = ""
		if c.record.IsNew() {
			c.count(ctx, "delete", obs.StatusSkipped)
			c.complete(ctx)
			return
		}
		prompt = fmt.Sprintf(deletePrompt, c.record.Name)
		epoch = c.epoch
		c.notify()
	})
	if err != nil || prompt == "" {
		return err
	}

	if !c.confirm.Confirm(ctx, prompt) {
		c.count(ctx, "delete", obs.StatusRejected)
		return nil
	}

	return c.loop.Do(ctx, func() {
		if !c.actionable() || epoch != c.epoch {
			return
		}
		rec := c.record
		c.state = Deleting
		c.dispatch(ctx, opDelete, func(ctx context.Context) (employee.Employee, error) {
			return rec, c.res.Delete(ctx, rec.ID)
		})
		c.notify()
	})
}

// Snapshot returns the current view.
func (c *Controller) Snapshot(ctx context.Context) (View, error) {
	var v View
	err := c.loop.Do(ctx, func() { v = c.view() })
	return v, err
}

func (c *Controller) actionable() bool {
	if c.destroyed || c.completed || !c.loaded {
		return false
	}
	return c.state == Editing || c.state == Errored
}

// dispatch runs call off the loop and applies its result back on the loop.
// The result is dropped if the controller was destroyed or re-initialized in
// the meantime. In-flight calls are not cancelled.
func (c *Controller) dispatch(ctx context.Context, op string, call func(context.Context) (employee.Employee, error)) {
	epoch := c.epoch
	callCtx := context.WithoutCancel(ctx)
	c.inflight.Add(1)

	go func() {
		defer c.inflight.Done()

		elapsed := obs.StartTimer()
		out, err := call(callCtx)

		var ok bool
		applyErr := c.loop.Do(callCtx, func() {
			ok = c.settle(callCtx, epoch, op, out, err, elapsed())
		})
		if applyErr != nil {
			obs.Debug(callCtx, "result dropped", "operation", op, "reason", applyErr.Error())
			return
		}
		if ok {
			pubCtx, cancel := context.WithTimeout(callCtx, publishTimeout)
			defer cancel()
			c.publish(pubCtx, op, out)
		}
	}()
}

// settle applies a call result on the loop. It reports whether a successful
// result was applied.
func (c *Controller) settle(ctx context.Context, epoch uint64, op string, out employee.Employee, err error, latency time.Duration) bool {
	if c.destroyed || epoch != c.epoch {
		obs.Debug(ctx, "stale result dropped", "operation", op)
		return false
	}
	ctx = obs.WithOperation(obs.WithRecord(ctx, out.ID), op)

	if err != nil {
		c.state = Errored
		c.errMsg = err.Error()
		if op == opGet {
			c.loaded = false
		}
		c.count(ctx, op, obs.StatusError)
		obs.EventWithLatency(ctx, "editor."+op, obs.StatusError, latency, "error", c.errMsg)
		c.notify()
		return false
	}

	c.count(ctx, op, obs.StatusOK)
	obs.EventWithLatency(ctx, "editor."+op, obs.StatusOK, latency)

	if op == opGet {
		c.displayRecord(out)
		c.notify()
		return true
	}
	c.record = out
	c.complete(ctx)
	return true
}

// complete clears the form and returns to the listing.
func (c *Controller) complete(ctx context.Context) {
	c.form.Reset()
	c.messages = map[string]string{}
	c.completed = true
	c.state = Editing
	c.notify()
	c.nav.Navigate(ListRoute)
}

func (c *Controller) publish(ctx context.Context, op string, e employee.Employee) {
	var evOp string
	switch op {
	case opCreate:
		evOp = events.OpCreated
	case opUpdate:
		evOp = events.OpUpdated
	case opDelete:
		evOp = events.OpDeleted
	default:
		return
	}
	change := events.RecordChanged{ID: e.ID, Name: e.Name, Op: evOp}
	if err := c.pub.Publish(ctx, change); err != nil {
		obs.Warn(ctx, "change not published", "op", evOp, "error", err.Error())
	}
}

func (c *Controller) count(ctx context.Context, op, outcome string) {
	c.actions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

func (c *Controller) view() View {
	return View{
		State:     c.state,
		Title:     c.title,
		Record:    c.record,
		Loaded:    c.loaded,
		Values:    c.form.Values(),
		Messages:  maps.Clone(c.messages),
		Error:     c.errMsg,
		Dirty:     c.form.Dirty(),
		Valid:     c.form.Valid(),
		Completed: c.completed,
	}
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange(c.view())
	}
}
