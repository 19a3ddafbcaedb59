package coaching

import (
	"context"
	"slices"
	"sync"

	"github.com/nm1236623-droid/fitsync/internal/models"
)

// Inbox is the list of remote plans displayed to one trainee. Marking a plan
// read or removing it only hides it locally: the coach's copy is untouched and
// the plan comes back on the next Refresh.
type Inbox struct {
	svc       *Service
	traineeID string

	mu    sync.Mutex
	items []models.InboxItem
}

func (s *Service) Inbox(traineeID string) *Inbox {
	return &Inbox{svc: s, traineeID: traineeID, items: []models.InboxItem{}}
}

// Refresh reloads the displayed list from the remote store.
func (in *Inbox) Refresh(ctx context.Context) ([]models.InboxItem, error) {
	items, err := in.svc.RemoteItems(ctx, in.traineeID)
	if err != nil {
		return nil, err
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.items = items
	return slices.Clone(items), nil
}

func (in *Inbox) Items() []models.InboxItem {
	in.mu.Lock()
	defer in.mu.Unlock()
	return slices.Clone(in.items)
}

// MarkInboxPlanRead hides the inbox copy of planID sent by coachID.
func (in *Inbox) MarkInboxPlanRead(coachID, planID string) bool {
	return in.hide(func(it models.InboxItem) bool {
		return it.Origin == models.OriginInbox && it.Plan.CoachID == coachID && it.Plan.ID == planID
	})
}

// RemoveRemotePlan hides every copy of planID sent by coachID.
func (in *Inbox) RemoveRemotePlan(coachID, planID string) bool {
	return in.hide(func(it models.InboxItem) bool {
		return it.Plan.CoachID == coachID && it.Plan.ID == planID
	})
}

func (in *Inbox) hide(match func(models.InboxItem) bool) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	n := len(in.items)
	in.items = slices.DeleteFunc(in.items, match)
	return len(in.items) != n
}
