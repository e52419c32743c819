package sync

import (
	"context"
	"fmt"
	sysync "sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/casaops/backend/internal/cleaning"
	"github.com/casaops/backend/internal/config"
	"github.com/casaops/backend/internal/feed"
	"github.com/casaops/backend/internal/inventory"
	"github.com/casaops/backend/internal/laundry"
	"github.com/casaops/backend/internal/storage"
	"github.com/casaops/backend/internal/storage/models"
	"github.com/casaops/backend/internal/websocket"
)

// Options selects the scope of an orchestrator run.
type Options struct {
	// PropertyID restricts the run to a single property when non-empty.
	PropertyID string
}

// Orchestrator drives the full sync pipeline per property: fetch, parse,
// reconcile, cascade cleanings and laundry orders. Properties are
// independent units of work and run on a bounded worker pool; one
// property's failure never aborts the batch.
type Orchestrator struct {
	properties *storage.PropertyRepository
	bookings   *storage.BookingRepository

	fetcher    *feed.Fetcher
	parser     *feed.Parser
	reconciler *Reconciler
	generator  *cleaning.Generator
	laundry    *laundry.OrderService
	inventory  *inventory.Service

	broadcaster *websocket.Broadcaster
	cfg         config.SyncConfig
	defaultLoc  *time.Location

	mu         sysync.Mutex
	lastReport *models.RunReport
}

// NewOrchestrator creates a sync orchestrator.
func NewOrchestrator(
	properties *storage.PropertyRepository,
	bookings *storage.BookingRepository,
	fetcher *feed.Fetcher,
	parser *feed.Parser,
	reconciler *Reconciler,
	generator *cleaning.Generator,
	laundryService *laundry.OrderService,
	inventoryService *inventory.Service,
	broadcaster *websocket.Broadcaster,
	cfg config.SyncConfig,
) *Orchestrator {
	return &Orchestrator{
		properties:  properties,
		bookings:    bookings,
		fetcher:     fetcher,
		parser:      parser,
		reconciler:  reconciler,
		generator:   generator,
		laundry:     laundryService,
		inventory:   inventoryService,
		broadcaster: broadcaster,
		cfg:         cfg,
		defaultLoc:  cfg.DefaultLocation(),
	}
}

// Run executes a sync over the selected properties and returns the run
// report. Per-property errors are recorded in the report; the returned
// error is reserved for global failures (store unreachable, no catalog).
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*models.RunReport, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.RunTimeout)
	defer cancel()

	report := &models.RunReport{
		RunID:     storage.GenerateID(),
		StartedAt: time.Now().UTC(),
	}

	// Setup phase: the system inventory must be intact before any linen
	// computation; repairing it here keeps repair out of read paths.
	if _, err := o.inventory.EnsureSystemItems(ctx); err != nil {
		return nil, fmt.Errorf("ensuring system inventory: %w", err)
	}
	catalog, err := o.inventory.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading inventory catalog: %w", err)
	}

	properties, err := o.selectProperties(ctx, opts)
	if err != nil {
		return nil, err
	}

	o.broadcaster.SyncStarted(report.RunID, len(properties))
	log.Info().
		Str("run_id", report.RunID).
		Int("properties", len(properties)).
		Msg("Sync run started")

	results := make([]models.PropertyReport, len(properties))

	var wg sysync.WaitGroup
	sem := make(chan struct{}, o.cfg.Workers)

	for i := range properties {
		// Run deadline reached: let in-flight properties finish but do
		// not start new ones.
		if ctx.Err() != nil {
			results[i] = models.PropertyReport{
				PropertyID:   properties[i].ID,
				PropertyName: properties[i].Name,
				Errors:       []string{"run deadline reached before start"},
			}
			continue
		}

		sem <- struct{}{}
		// The deadline may have expired while waiting on a full pool.
		if ctx.Err() != nil {
			<-sem
			results[i] = models.PropertyReport{
				PropertyID:   properties[i].ID,
				PropertyName: properties[i].Name,
				Errors:       []string{"run deadline reached before start"},
			}
			continue
		}

		wg.Add(1)
		go func(idx int, p models.Property) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					results[idx].Errors = append(results[idx].Errors,
						fmt.Sprintf("panic: %v", r))
					log.Error().Str("property_id", p.ID).Interface("panic", r).Msg("Property sync panicked")
				}
			}()

			results[idx] = o.syncProperty(ctx, &p, catalog)
			o.broadcaster.PropertySynced(report.RunID, results[idx])
		}(i, properties[i])
	}

	wg.Wait()

	report.Properties = results
	for _, pr := range results {
		report.Errors = append(report.Errors, pr.Errors...)
	}
	report.FinishedAt = time.Now().UTC()
	report.ElapsedMS = report.FinishedAt.Sub(report.StartedAt).Milliseconds()
	report.Totals()

	o.mu.Lock()
	o.lastReport = report
	o.mu.Unlock()

	o.broadcaster.SyncCompleted(report)
	log.Info().
		Str("run_id", report.RunID).
		Int64("elapsed_ms", report.ElapsedMS).
		Int("created", report.TotalCreated).
		Int("updated", report.TotalUpdated).
		Int("cancelled", report.TotalCancelled).
		Int("skipped", report.TotalSkipped).
		Int("errors", len(report.Errors)).
		Msg("Sync run finished")

	return report, nil
}

// LastReport returns the most recent run report, or nil before the first run.
func (o *Orchestrator) LastReport() *models.RunReport {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastReport
}

func (o *Orchestrator) selectProperties(ctx context.Context, opts Options) ([]models.Property, error) {
	if opts.PropertyID != "" {
		p, err := o.properties.GetByID(ctx, opts.PropertyID)
		if err != nil {
			return nil, fmt.Errorf("loading property: %w", err)
		}
		if p == nil {
			return nil, fmt.Errorf("property not found: %s", opts.PropertyID)
		}
		return []models.Property{*p}, nil
	}

	properties, err := o.properties.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	return properties, nil
}

// syncProperty runs the sequential per-property pipeline. All stages share
// one worker; stage errors are recorded and the pipeline moves on.
func (o *Orchestrator) syncProperty(ctx context.Context, p *models.Property, catalog *inventory.Catalog) models.PropertyReport {
	pr := models.PropertyReport{PropertyID: p.ID, PropertyName: p.Name}

	locked, err := o.properties.AcquireSyncLock(ctx, p.ID, o.cfg.LockStaleAfter)
	if err != nil {
		pr.Errors = append(pr.Errors, err.Error())
		return pr
	}
	if !locked {
		pr.SkippedLock = true
		log.Warn().Str("property_id", p.ID).Msg("Property sync already in progress, skipping")
		return pr
	}
	defer func() {
		if err := o.properties.ReleaseSyncLock(context.WithoutCancel(ctx), p.ID); err != nil {
			log.Error().Err(err).Str("property_id", p.ID).Msg("Failed to release sync lock")
		}
	}()

	if len(p.Beds) == 0 {
		// Property-level configuration error: feeds still reconcile, but
		// the linen cascade would be wrong, so surface it.
		pr.Errors = append(pr.Errors, fmt.Sprintf("property %s has no bed configuration", p.ID))
	}

	feeds, err := o.properties.Feeds(ctx, p.ID)
	if err != nil {
		pr.Errors = append(pr.Errors, err.Error())
		return pr
	}

	for _, f := range feeds {
		sr := o.syncFeed(ctx, p, f)
		if sr.Error != "" {
			pr.Errors = append(pr.Errors, sr.Error)
		}
		pr.Sources = append(pr.Sources, sr)
	}

	if len(p.Beds) > 0 {
		o.cascade(ctx, p, catalog, &pr)
	}

	return pr
}

// syncFeed fetches, parses and reconciles one source.
func (o *Orchestrator) syncFeed(ctx context.Context, p *models.Property, f models.PropertyFeed) models.SourceReport {
	prevHash := ""
	if f.LastHash != nil {
		prevHash = *f.LastHash
	}

	result, err := o.fetcher.Fetch(ctx, f.Source, f.URL, prevHash)
	if err != nil {
		msg := err.Error()
		if uerr := o.properties.UpdateFeedSync(ctx, f.ID, nil, &msg); uerr != nil {
			log.Error().Err(uerr).Str("feed_id", f.ID).Msg("Failed to record feed error")
		}
		return models.SourceReport{Source: f.Source, Error: msg}
	}

	if result.Unchanged {
		// Content hash matched: nothing to reconcile for this feed.
		if err := o.properties.UpdateFeedSync(ctx, f.ID, &result.Hash, nil); err != nil {
			log.Error().Err(err).Str("feed_id", f.ID).Msg("Failed to record feed hash")
		}
		return models.SourceReport{Source: f.Source, Unchanged: true}
	}

	events, malformed, err := o.parser.ParseBytes(result.Body, f.Source)
	if err != nil {
		msg := fmt.Sprintf("source %s: %v", f.Source, err)
		return models.SourceReport{Source: f.Source, Error: msg}
	}
	events = feed.FilterFutureEvents(events, time.Now().UTC())

	sr, err := o.reconciler.Reconcile(ctx, p, f.Source, events)
	sr.Malformed = malformed
	if err != nil {
		sr.Error = fmt.Sprintf("source %s: %v", f.Source, err)
		return *sr
	}

	if err := o.properties.UpdateFeedSync(ctx, f.ID, &result.Hash, nil); err != nil {
		log.Error().Err(err).Str("feed_id", f.ID).Msg("Failed to record feed hash")
	}

	return *sr
}

// cascade generates cleanings and laundry orders for active bookings that
// do not have them yet, then refreshes the property's pickup aggregate.
func (o *Orchestrator) cascade(ctx context.Context, p *models.Property, catalog *inventory.Catalog, pr *models.PropertyReport) {
	bookings, err := o.bookings.ListByProperty(ctx, p.ID)
	if err != nil {
		pr.Errors = append(pr.Errors, err.Error())
		return
	}

	loc := p.Location(o.defaultLoc)
	today := models.NormalizeDay(time.Now().UTC(), loc)
	created := false

	for i := range bookings {
		b := &bookings[i]
		if b.Status != models.BookingStatusActive {
			continue
		}
		if b.CheckoutDay(loc) < today {
			continue
		}

		c, createdCleaning, err := o.generator.Generate(ctx, b, p)
		if err != nil {
			pr.Errors = append(pr.Errors, err.Error())
			continue
		}
		if c == nil {
			continue // excluded
		}
		if createdCleaning {
			pr.Cleanings++
		}

		_, createdOrder, err := o.laundry.CreateForCleaning(ctx, c, p, catalog)
		if err != nil {
			// Unresolvable system items abort this cleaning's order only;
			// the failure is prominent in the report.
			pr.Errors = append(pr.Errors, err.Error())
			continue
		}
		if createdOrder {
			pr.Orders++
			created = true
		}
	}

	if created {
		if _, err := o.laundry.RecomputePickup(ctx, p.ID, catalog); err != nil {
			pr.Errors = append(pr.Errors, err.Error())
		}
	}
}
