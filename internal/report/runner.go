// Package report runs the daily deal report: fetch, group, render and deliver.
package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/dealposter/internal/deals"
	"github.com/dealposter/internal/delivery"
	"github.com/dealposter/internal/model"
	"github.com/dealposter/internal/source"
	"github.com/dealposter/internal/theme"
	"github.com/dealposter/internal/worker"
)

const (
	TriggerSchedule = "schedule"
	TriggerCommand  = "command"
	TriggerManual   = "manual"
)

// User-facing notices.
const (
	MsgFetchFailed     = "今日快餐优惠数据获取失败，请稍后重试。"
	MsgNoDeals         = "今日暂无监控到的快餐优惠活动。"
	MsgAllRenderFailed = "今日快餐优惠海报全部生成失败，但数据已获取成功，请稍后在控制台查看日志。"
	MsgAllSendFailed   = "今日快餐优惠海报发送失败，请稍后重试。"

	introFormat           = "为您奉上 %s 今日快餐优惠货比三家早报，请查阅。"
	brandRenderFailed     = "%s 今日快餐优惠海报生成失败，但数据已获取成功，请稍后在控制台查看日志。"
	brandCommandRenderErr = "%s 今日快餐优惠海报生成失败，请稍后重试。"
)

// ErrFetchFailed wraps a data source failure.
var ErrFetchFailed = errors.New("deal fetch failed")

// PosterRenderer turns one brand group into a poster file.
type PosterRenderer interface {
	Render(ctx context.Context, job model.PosterJob) (string, error)
}

// Notifier fans messages out to destinations.
type Notifier interface {
	SendText(ctx context.Context, dests []string, text string) delivery.Report
	SendImageWithCaption(ctx context.Context, dests []string, imagePath, caption string) delivery.Report
}

// Offloader runs blocking work away from the caller's goroutine.
type Offloader interface {
	Do(ctx context.Context, task worker.Task) (string, error)
}

// RunRecorder persists run history.
type RunRecorder interface {
	Create(ctx context.Context, run *model.Run) error
	Complete(ctx context.Context, run *model.Run) error
	AddDelivery(ctx context.Context, rec model.DeliveryRecord) error
}

// Metrics receives run and render counters.
type Metrics interface {
	RecordRun(trigger string)
	RecordRendered(seconds float64)
	RecordRenderFailed()
}

// Reply is one message of an on-demand command response.
type Reply struct {
	Text      string `json:"text,omitempty"`
	ImagePath string `json:"image_path,omitempty"`
}

type Config struct {
	Targets []string
	Brands  []string
	Timeout time.Duration
}

type Runner struct {
	source   source.Source
	renderer PosterRenderer
	notifier Notifier
	offload  Offloader
	selector theme.Selector
	recorder RunRecorder
	metrics  Metrics
	cfg      Config
	now      func() time.Time
}

type Option func(*Runner)

// WithRecorder stores run history through rec.
func WithRecorder(rec RunRecorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

func WithMetrics(m Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithSelector overrides the weekday theme selector.
func WithSelector(s theme.Selector) Option {
	return func(r *Runner) { r.selector = s }
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner wires a runner. offload may be nil, in which case renders run on
// the calling goroutine.
func NewRunner(src source.Source, renderer PosterRenderer, notifier Notifier, offload Offloader, cfg Config, opts ...Option) *Runner {
	r := &Runner{
		source:   src,
		renderer: renderer,
		notifier: notifier,
		offload:  offload,
		selector: theme.DefaultSelector(),
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Targets returns the configured destinations.
func (r *Runner) Targets() []string {
	return r.cfg.Targets
}

// RunScheduled is the timer callback. It never panics and never returns an
// error, so a bad run cannot disable later firings.
func (r *Runner) RunScheduled(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Scheduled report panicked: %v\n%s", rec, debug.Stack())
		}
	}()

	if len(r.cfg.Targets) == 0 {
		log.Println("Warning: no target groups configured, skipping scheduled report")
		return
	}

	run, err := r.Run(ctx, TriggerSchedule)
	if err != nil {
		log.Printf("Scheduled report %s failed: %v", run.ID, err)
		return
	}
	log.Printf("Scheduled report %s finished with status %s", run.ID, run.Status)
}

// Run produces and delivers today's posters to every configured target. The
// returned run is never nil; the error is non-nil only when deals could not
// be fetched.
func (r *Runner) Run(ctx context.Context, triggeredBy string) (*model.Run, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	run := &model.Run{
		ID:          uuid.New().String(),
		TriggeredBy: triggeredBy,
		Status:      model.RunStatusRunning,
		StartedAt:   r.now(),
		Brands:      model.BrandOutcomes{},
	}
	r.recordRun(triggeredBy)
	if r.recorder != nil {
		if err := r.recorder.Create(ctx, run); err != nil {
			log.Printf("Warning: failed to record run start: %v", err)
		}
	}
	defer r.complete(run)

	targets := r.cfg.Targets

	records, err := r.source.Fetch(ctx, r.brands())
	if err != nil {
		log.Printf("Failed to fetch deals from %s: %v", r.source.Name(), err)
		r.sendText(ctx, run, "", targets, MsgFetchFailed)
		err = fmt.Errorf("%w: %v", ErrFetchFailed, err)
		run.Fail(err, r.now())
		return run, err
	}

	run.DealCount = len(records)
	if len(records) == 0 {
		r.sendText(ctx, run, "", targets, MsgNoDeals)
		run.Finish(model.RunStatusEmpty, r.now())
		return run, nil
	}

	jobs := r.plan(records)
	run.Theme = jobs[0].Theme.Key

	rendered, delivered := 0, 0
	for _, job := range jobs {
		outcome := model.BrandOutcome{Brand: job.BrandName, DealCount: len(job.Deals)}

		path, err := r.render(ctx, job)
		if err != nil {
			outcome.Error = err.Error()
			rep := r.sendText(ctx, run, job.BrandName, targets, fmt.Sprintf(brandRenderFailed, job.BrandName))
			outcome.Failed = rep.Failed()
			run.Brands = append(run.Brands, outcome)
			continue
		}
		rendered++
		outcome.Rendered = true
		outcome.PosterPath = path

		rep := r.notifier.SendImageWithCaption(ctx, targets, path, fmt.Sprintf(introFormat, job.BrandName))
		r.recordDeliveries(ctx, run, job.BrandName, rep)
		outcome.Delivered = rep.Sent()
		outcome.Degraded = rep.Degraded()
		outcome.Failed = rep.Failed()
		if !rep.AllFailed() {
			delivered++
		}
		run.Brands = append(run.Brands, outcome)
	}

	switch {
	case rendered == 0:
		r.sendText(ctx, run, "", targets, MsgAllRenderFailed)
		run.Fail(errors.New("all posters failed to render"), r.now())
	case delivered == 0 && len(targets) > 0:
		log.Printf("Warning: every poster delivery failed for run %s", run.ID)
		r.sendText(ctx, run, "", targets, MsgAllSendFailed)
		run.Fail(errors.New("all poster deliveries failed"), r.now())
	case rendered < len(jobs) || partial(run.Brands):
		run.Finish(model.RunStatusPartial, r.now())
	default:
		run.Finish(model.RunStatusCompleted, r.now())
	}
	return run, nil
}

// Command answers the on-demand chat command. Nothing is sent; the caller
// relays the replies in order.
func (r *Runner) Command(ctx context.Context) []Reply {
	r.recordRun(TriggerCommand)

	records, err := r.source.Fetch(ctx, r.brands())
	if err != nil {
		log.Printf("Failed to fetch deals from %s: %v", r.source.Name(), err)
		return []Reply{{Text: MsgFetchFailed}}
	}
	if len(records) == 0 {
		return []Reply{{Text: MsgNoDeals}}
	}

	var replies []Reply
	for _, job := range r.plan(records) {
		path, err := r.render(ctx, job)
		if err != nil {
			replies = append(replies, Reply{Text: fmt.Sprintf(brandCommandRenderErr, job.BrandName)})
			continue
		}
		replies = append(replies,
			Reply{Text: fmt.Sprintf(introFormat, job.BrandName)},
			Reply{ImagePath: path},
		)
	}
	return replies
}

// Render renders today's posters without delivering them.
func (r *Runner) Render(ctx context.Context) ([]string, error) {
	records, err := r.source.Fetch(ctx, r.brands())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	var paths []string
	var errs []error
	for _, job := range r.plan(records) {
		path, err := r.render(ctx, job)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job.BrandName, err))
			continue
		}
		paths = append(paths, path)
	}
	return paths, errors.Join(errs...)
}

// plan builds one poster job per brand group. The best-deal brand is chosen
// across all records before grouping.
func (r *Runner) plan(records []model.DealRecord) []model.PosterJob {
	cfg := theme.Resolve(r.selector.ThemeFor(r.now()))
	best := deals.BestBrand(records)

	groups := deals.GroupByBrand(records, r.brands())
	jobs := make([]model.PosterJob, 0, len(groups))
	for _, g := range groups {
		jobs = append(jobs, model.PosterJob{
			Deals:     g.Deals,
			Theme:     cfg,
			BrandName: g.Brand,
			BestBrand: best,
		})
	}
	return jobs
}

func (r *Runner) render(ctx context.Context, job model.PosterJob) (path string, err error) {
	start := time.Now()
	defer func() {
		if r.metrics == nil {
			return
		}
		if err != nil {
			r.metrics.RecordRenderFailed()
			return
		}
		r.metrics.RecordRendered(time.Since(start).Seconds())
	}()

	task := func(ctx context.Context) (string, error) {
		return r.renderer.Render(ctx, job)
	}
	if r.offload == nil {
		path, err = task(ctx)
	} else {
		path, err = r.offload.Do(ctx, task)
	}
	if err != nil {
		log.Printf("Failed to render poster for %s: %v", job.BrandName, err)
		return "", err
	}
	return path, nil
}

func (r *Runner) sendText(ctx context.Context, run *model.Run, brand string, targets []string, text string) delivery.Report {
	if len(targets) == 0 {
		return delivery.Report{}
	}
	rep := r.notifier.SendText(ctx, targets, text)
	r.recordDeliveries(ctx, run, brand, rep)
	return rep
}

func (r *Runner) recordDeliveries(ctx context.Context, run *model.Run, brand string, rep delivery.Report) {
	if r.recorder == nil {
		return
	}
	for _, o := range rep.Outcomes {
		rec := model.DeliveryRecord{
			ID:          uuid.New().String(),
			RunID:       run.ID,
			Brand:       brand,
			Destination: o.Destination,
			Status:      string(o.Status),
			CreatedAt:   r.now(),
		}
		if o.Error != "" {
			msg := o.Error
			rec.Error = &msg
		}
		if err := r.recorder.AddDelivery(ctx, rec); err != nil {
			log.Printf("Warning: failed to record delivery to %s: %v", o.Destination, err)
		}
	}
}

func (r *Runner) complete(run *model.Run) {
	if run.FinishedAt == nil {
		run.Fail(errors.New("run aborted"), r.now())
	}
	if r.recorder == nil {
		return
	}
	// The run context may already be canceled.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.recorder.Complete(ctx, run); err != nil {
		log.Printf("Warning: failed to record run completion: %v", err)
	}
}

func (r *Runner) recordRun(trigger string) {
	if r.metrics != nil {
		r.metrics.RecordRun(trigger)
	}
}

func (r *Runner) brands() []string {
	if len(r.cfg.Brands) == 0 {
		return source.DefaultBrands
	}
	return r.cfg.Brands
}

func partial(outcomes model.BrandOutcomes) bool {
	for _, o := range outcomes {
		if o.Failed > 0 || o.Degraded > 0 {
			return true
		}
	}
	return false
}
