// Package dedupe finds and collapses duplicate bookings, cleanings and
// laundry orders sharing a property+day key.
//
// Duplicates are the expected steady state (timezone drift, overlapping
// feeds, historical bugs), not an exception: live sync never auto-deletes
// them, only this resolver does, and only in execute mode. Dry-run is the
// default; the same detection pass backs both modes so the report and the
// deletion can never disagree.
package dedupe

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/casaops/backend/internal/storage"
	"github.com/casaops/backend/internal/storage/models"
)

// Kind selects which entity class to resolve.
type Kind string

// Entity kinds.
const (
	KindBookings  Kind = "bookings"
	KindCleanings Kind = "cleanings"
	KindOrders    Kind = "orders"
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBookings, KindCleanings, KindOrders:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown duplicate kind %q", s)
	}
}

// Group is one set of duplicates sharing a day key.
type Group struct {
	Key      models.DayKey `json:"key"`
	KeeperID string        `json:"keeper_id"`
	LoserIDs []string      `json:"loser_ids"`
}

// Report is the outcome of a resolver pass.
type Report struct {
	Kind    Kind    `json:"kind"`
	Applied bool    `json:"applied"`
	Groups  []Group `json:"groups"`
	Deleted int     `json:"deleted"`
}

// Resolver detects and (in execute mode) collapses duplicates.
type Resolver struct {
	bookings   *storage.BookingRepository
	cleanings  *storage.CleaningRepository
	orders     *storage.OrderRepository
	properties *storage.PropertyRepository
	defaultLoc *time.Location
}

// NewResolver creates a duplicate resolver. defaultLoc is used for
// properties without their own timezone; nil means UTC.
func NewResolver(
	bookings *storage.BookingRepository,
	cleanings *storage.CleaningRepository,
	orders *storage.OrderRepository,
	properties *storage.PropertyRepository,
	defaultLoc *time.Location,
) *Resolver {
	return &Resolver{
		bookings:   bookings,
		cleanings:  cleanings,
		orders:     orders,
		properties: properties,
		defaultLoc: defaultLoc,
	}
}

// Resolve runs one pass over the given entity kind. With apply false (the
// default everywhere) it only reports; with apply true it merges
// loser-only fields onto each keeper and deletes the losers.
func (r *Resolver) Resolve(ctx context.Context, kind Kind, apply bool) (*Report, error) {
	switch kind {
	case KindBookings:
		return r.resolveBookings(ctx, apply)
	case KindCleanings:
		return r.resolveCleanings(ctx, apply)
	case KindOrders:
		return r.resolveOrders(ctx, apply)
	default:
		return nil, fmt.Errorf("unknown duplicate kind %q", kind)
	}
}

func (r *Resolver) resolveBookings(ctx context.Context, apply bool) (*Report, error) {
	bookings, err := r.bookings.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing bookings: %w", err)
	}

	// Checkout normalization needs each property's timezone.
	locations, err := r.propertyLocations(ctx, bookingPropertyIDs(bookings))
	if err != nil {
		return nil, err
	}

	groups := make(map[models.DayKey][]models.Booking)
	for _, b := range bookings {
		key := models.NewDayKey(b.PropertyID, b.CheckOut, locations[b.PropertyID])
		groups[key] = append(groups[key], b)
	}

	report := &Report{Kind: KindBookings, Applied: apply}
	for key, members := range groups {
		if len(members) < 2 {
			continue
		}

		sort.Slice(members, func(i, j int) bool {
			return bookingWins(&members[i], &members[j])
		})
		keeper := members[0]
		losers := members[1:]

		group := Group{Key: key, KeeperID: keeper.ID}
		for _, l := range losers {
			group.LoserIDs = append(group.LoserIDs, l.ID)
		}
		report.Groups = append(report.Groups, group)

		if !apply {
			continue
		}

		changed := false
		for _, l := range losers {
			if keeper.CleaningID == nil && l.CleaningID != nil {
				keeper.CleaningID = l.CleaningID
				changed = true
			}
			if keeper.ExternalUID == nil && l.ExternalUID != nil {
				keeper.ExternalUID = l.ExternalUID
				changed = true
			}
			if keeper.GuestsCount == nil && l.GuestsCount != nil {
				keeper.GuestsCount = l.GuestsCount
				changed = true
			}
		}
		if changed {
			if err := r.bookings.Update(ctx, &keeper); err != nil {
				return nil, fmt.Errorf("merging booking %s: %w", keeper.ID, err)
			}
		}
		for _, l := range losers {
			if err := r.bookings.Delete(ctx, l.ID); err != nil {
				return nil, fmt.Errorf("deleting booking %s: %w", l.ID, err)
			}
			report.Deleted++
		}
	}

	r.sortAndLog(report)
	return report, nil
}

func (r *Resolver) resolveCleanings(ctx context.Context, apply bool) (*Report, error) {
	cleanings, err := r.cleanings.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing cleanings: %w", err)
	}

	groups := make(map[models.DayKey][]models.Cleaning)
	for _, c := range cleanings {
		key := models.DayKey{PropertyID: c.PropertyID, Day: c.ScheduledDate}
		groups[key] = append(groups[key], c)
	}

	report := &Report{Kind: KindCleanings, Applied: apply}
	for key, members := range groups {
		if len(members) < 2 {
			continue
		}

		sort.Slice(members, func(i, j int) bool {
			return cleaningWins(&members[i], &members[j])
		})
		keeper := members[0]
		losers := members[1:]

		group := Group{Key: key, KeeperID: keeper.ID}
		for _, l := range losers {
			group.LoserIDs = append(group.LoserIDs, l.ID)
		}
		report.Groups = append(report.Groups, group)

		if !apply {
			continue
		}

		changed := false
		for _, l := range losers {
			if keeper.BookingID == nil && l.BookingID != nil {
				keeper.BookingID = l.BookingID
				changed = true
			}
			if keeper.LinenOrderID == nil && l.LinenOrderID != nil {
				keeper.LinenOrderID = l.LinenOrderID
				changed = true
			}
		}
		if changed {
			if err := r.cleanings.Update(ctx, &keeper); err != nil {
				return nil, fmt.Errorf("merging cleaning %s: %w", keeper.ID, err)
			}
		}
		for _, l := range losers {
			if err := r.cleanings.Delete(ctx, l.ID); err != nil {
				return nil, fmt.Errorf("deleting cleaning %s: %w", l.ID, err)
			}
			report.Deleted++
		}
	}

	r.sortAndLog(report)
	return report, nil
}

func (r *Resolver) resolveOrders(ctx context.Context, apply bool) (*Report, error) {
	orders, err := r.orders.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	groups := make(map[models.DayKey][]models.LaundryOrder)
	for _, o := range orders {
		key := models.DayKey{PropertyID: o.PropertyID, Day: o.ScheduledDate}
		groups[key] = append(groups[key], o)
	}

	report := &Report{Kind: KindOrders, Applied: apply}
	for key, members := range groups {
		if len(members) < 2 {
			continue
		}

		sort.Slice(members, func(i, j int) bool {
			return orderWins(&members[i], &members[j])
		})
		keeper := members[0]
		losers := members[1:]

		group := Group{Key: key, KeeperID: keeper.ID}
		for _, l := range losers {
			group.LoserIDs = append(group.LoserIDs, l.ID)
		}
		report.Groups = append(report.Groups, group)

		if !apply {
			continue
		}

		changed := false
		for _, l := range losers {
			if keeper.CleaningID == nil && l.CleaningID != nil {
				keeper.CleaningID = l.CleaningID
				changed = true
			}
			if keeper.RiderID == nil && l.RiderID != nil {
				keeper.RiderID = l.RiderID
				changed = true
			}
		}
		if changed {
			if err := r.orders.Update(ctx, &keeper); err != nil {
				return nil, fmt.Errorf("merging order %s: %w", keeper.ID, err)
			}
		}
		for _, l := range losers {
			if err := r.orders.Delete(ctx, l.ID); err != nil {
				return nil, fmt.Errorf("deleting order %s: %w", l.ID, err)
			}
			report.Deleted++
		}
	}

	r.sortAndLog(report)
	return report, nil
}

// bookingWins: UID presence, then earliest creation.
func bookingWins(a, b *models.Booking) bool {
	aUID := a.ExternalUID != nil && *a.ExternalUID != ""
	bUID := b.ExternalUID != nil && *b.ExternalUID != ""
	if aUID != bUID {
		return aUID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// cleaningWins: linked booking, then earliest creation.
func cleaningWins(a, b *models.Cleaning) bool {
	aLinked := a.BookingID != nil
	bLinked := b.BookingID != nil
	if aLinked != bLinked {
		return aLinked
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// orderWins: status progression, then assigned rider, then earliest creation.
func orderWins(a, b *models.LaundryOrder) bool {
	if ra, rb := models.OrderStatusRank[a.Status], models.OrderStatusRank[b.Status]; ra != rb {
		return ra > rb
	}
	aRider := a.RiderID != nil && *a.RiderID != ""
	bRider := b.RiderID != nil && *b.RiderID != ""
	if aRider != bRider {
		return aRider
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (r *Resolver) propertyLocations(ctx context.Context, ids []string) (map[string]*time.Location, error) {
	locations := make(map[string]*time.Location, len(ids))
	for _, id := range ids {
		p, err := r.properties.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loading property %s: %w", id, err)
		}
		if p != nil {
			locations[id] = p.Location(r.defaultLoc)
		}
	}
	return locations, nil
}

func bookingPropertyIDs(bookings []models.Booking) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, b := range bookings {
		if !seen[b.PropertyID] {
			seen[b.PropertyID] = true
			ids = append(ids, b.PropertyID)
		}
	}
	return ids
}

// sortAndLog orders groups for stable reports and logs the pass outcome.
func (r *Resolver) sortAndLog(report *Report) {
	sort.Slice(report.Groups, func(i, j int) bool {
		a, b := report.Groups[i].Key, report.Groups[j].Key
		if a.PropertyID != b.PropertyID {
			return a.PropertyID < b.PropertyID
		}
		return a.Day < b.Day
	})

	log.Info().
		Str("kind", string(report.Kind)).
		Bool("applied", report.Applied).
		Int("groups", len(report.Groups)).
		Int("deleted", report.Deleted).
		Msg("Duplicate resolution pass complete")
}
