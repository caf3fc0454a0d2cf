package memory

import (
	"context"
	"sort"

	"stagerent/internal/domain/availability"
	"stagerent/internal/domain/shared/daterange"
)

type Registry struct {
	store   *Store
	journal *journal
}

func (r *Registry) ListFor(ctx context.Context, subject string, window daterange.DateRange) ([]availability.BlockedPeriod, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []availability.BlockedPeriod
	for _, p := range r.store.periods {
		match := string(p.AssetID) == subject || (p.ProductLevel() && string(p.ProductID) == subject)
		if match && p.Range.Overlaps(window) {
			out = append(out, p)
		}
	}
	sortPeriods(out)
	return out, nil
}

func (r *Registry) Add(ctx context.Context, period availability.BlockedPeriod) (availability.BlockedPeriod, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.periods[period.ID] = period
	r.journal.record(func() { delete(r.store.periods, period.ID) })
	return period, nil
}

func (r *Registry) RemoveByOrder(ctx context.Context, orderID string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	removed := 0
	for id, p := range r.store.periods {
		if !p.IsHold() || p.OrderID != orderID {
			continue
		}
		delete(r.store.periods, id)
		restored := p
		r.journal.record(func() { r.store.periods[restored.ID] = restored })
		removed++
	}
	return removed, nil
}

func (r *Registry) Remove(ctx context.Context, id availability.PeriodID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.periods[id]
	if !ok {
		return availability.ErrPeriodNotFound
	}
	delete(r.store.periods, id)
	r.journal.record(func() { r.store.periods[id] = p })
	return nil
}

func (r *Registry) ByID(ctx context.Context, id availability.PeriodID) (availability.BlockedPeriod, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	p, ok := r.store.periods[id]
	if !ok {
		return availability.BlockedPeriod{}, availability.ErrPeriodNotFound
	}
	return p, nil
}

func (r *Registry) ByOrder(ctx context.Context, orderID string) ([]availability.BlockedPeriod, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []availability.BlockedPeriod
	for _, p := range r.store.periods {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	sortPeriods(out)
	return out, nil
}

func (r *Registry) UpdateMetadata(ctx context.Context, id availability.PeriodID, notes string, reason availability.Reason) (availability.BlockedPeriod, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.periods[id]
	if !ok {
		return availability.BlockedPeriod{}, availability.ErrPeriodNotFound
	}
	updated, err := applyMetadata(p, notes, reason)
	if err != nil {
		return availability.BlockedPeriod{}, err
	}
	r.store.periods[id] = updated
	r.journal.record(func() { r.store.periods[id] = p })
	return updated, nil
}

// applyMetadata keeps order holds tied to their order: their reason cannot
// change and nothing can become an order hold after the fact.
func applyMetadata(p availability.BlockedPeriod, notes string, reason availability.Reason) (availability.BlockedPeriod, error) {
	if reason != "" && reason != p.Reason {
		if !reason.Valid() {
			return availability.BlockedPeriod{}, availability.ErrInvalidReason
		}
		if p.IsHold() || reason == availability.ReasonOrder {
			return availability.BlockedPeriod{}, availability.ErrReasonImmutable
		}
		p.Reason = reason
	}
	p.Notes = notes
	return p, nil
}

func sortPeriods(periods []availability.BlockedPeriod) {
	sort.Slice(periods, func(i, j int) bool {
		if periods[i].Range.Start.Equal(periods[j].Range.Start) {
			return periods[i].ID < periods[j].ID
		}
		return periods[i].Range.Start.Before(periods[j].Range.Start)
	})
}

var _ availability.Registry = (*Registry)(nil)
