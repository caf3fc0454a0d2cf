package memory

import (
	"context"
	"sort"

	"stagerent/internal/app/uow"
	"stagerent/internal/domain/issue"
	"stagerent/internal/domain/shared/events"
)

type IssueRepository struct {
	store   *Store
	journal *journal
}

func (r *IssueRepository) ByID(ctx context.Context, id issue.IssueID) (*issue.RentalIssue, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	is, ok := r.store.issues[id]
	if !ok {
		return nil, issue.ErrIssueNotFound
	}
	return cloneIssue(is), nil
}

func (r *IssueRepository) Save(ctx context.Context, is *issue.RentalIssue) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	prev, existed := r.store.issues[is.ID]
	if existed && prev.Version != is.Version {
		return uow.ErrConcurrentUpdate
	}
	is.Version++
	id := is.ID
	r.store.issues[id] = cloneIssue(is)
	r.journal.record(func() {
		if existed {
			r.store.issues[id] = prev
		} else {
			delete(r.store.issues, id)
		}
	})
	return nil
}

func (r *IssueRepository) List(ctx context.Context, status issue.Status) ([]*issue.RentalIssue, error) {
	return r.filter(func(is *issue.RentalIssue) bool { return status == "" || is.Status == status }), nil
}

func (r *IssueRepository) ListByRental(ctx context.Context, rentalID string) ([]*issue.RentalIssue, error) {
	return r.filter(func(is *issue.RentalIssue) bool { return is.RentalID == rentalID }), nil
}

func (r *IssueRepository) filter(keep func(*issue.RentalIssue) bool) []*issue.RentalIssue {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*issue.RentalIssue, 0)
	for _, is := range r.store.issues {
		if keep(is) {
			out = append(out, cloneIssue(is))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReportedAt.Equal(out[j].ReportedAt) {
			return out[i].ReportedAt.After(out[j].ReportedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func cloneIssue(is *issue.RentalIssue) *issue.RentalIssue {
	c := *is
	c.EventRecorder = events.EventRecorder{}
	return &c
}
