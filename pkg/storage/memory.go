package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/absmach/flaas/pkg/device"
	pkgerrors "github.com/absmach/flaas/pkg/errors"
	"github.com/absmach/flaas/pkg/project"
)

func page[T any](items []T, offset, limit uint64) []T {
	total := uint64(len(items))
	if offset >= total {
		return []T{}
	}
	end := offset + limit
	if end > total || limit == 0 {
		end = total
	}

	return items[offset:end]
}

type memoryProjectRepo struct {
	sync.Mutex

	projects map[string]project.Project
}

func NewInMemoryProjectRepository() ProjectRepository {
	return &memoryProjectRepo{projects: make(map[string]project.Project)}
}

func (r *memoryProjectRepo) Create(_ context.Context, p project.Project) (project.Project, error) {
	if p.ID == "" {
		return project.Project{}, pkgerrors.ErrEmptyKey
	}

	r.Lock()
	defer r.Unlock()

	if _, ok := r.projects[p.ID]; ok {
		return project.Project{}, pkgerrors.ErrEntityExists
	}
	r.projects[p.ID] = p

	return p, nil
}

func (r *memoryProjectRepo) Get(_ context.Context, id string) (project.Project, error) {
	r.Lock()
	defer r.Unlock()

	p, ok := r.projects[id]
	if !ok {
		return project.Project{}, pkgerrors.ErrNotFound
	}

	return p, nil
}

func (r *memoryProjectRepo) Update(_ context.Context, p project.Project) error {
	r.Lock()
	defer r.Unlock()

	if _, ok := r.projects[p.ID]; !ok {
		return pkgerrors.ErrNotFound
	}
	r.projects[p.ID] = p

	return nil
}

func (r *memoryProjectRepo) sorted() []project.Project {
	all := make([]project.Project, 0, len(r.projects))
	for _, p := range r.projects {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}

		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	return all
}

func (r *memoryProjectRepo) List(_ context.Context, offset, limit uint64) ([]project.Project, uint64, error) {
	r.Lock()
	defer r.Unlock()

	all := r.sorted()

	return page(all, offset, limit), uint64(len(all)), nil
}

func (r *memoryProjectRepo) ListByStatus(_ context.Context, status project.Status) ([]project.Project, error) {
	r.Lock()
	defer r.Unlock()

	var res []project.Project
	for _, p := range r.sorted() {
		if p.Status == status {
			res = append(res, p)
		}
	}

	return res, nil
}

func (r *memoryProjectRepo) Delete(_ context.Context, id string) error {
	r.Lock()
	defer r.Unlock()

	if _, ok := r.projects[id]; !ok {
		return pkgerrors.ErrNotFound
	}
	delete(r.projects, id)

	return nil
}

type memoryRoundRepo struct {
	sync.Mutex

	rounds map[string][]project.Round
}

func NewInMemoryRoundRepository() RoundRepository {
	return &memoryRoundRepo{rounds: make(map[string][]project.Round)}
}

func (r *memoryRoundRepo) Create(_ context.Context, rnd project.Round) (project.Round, error) {
	if rnd.ID == "" || rnd.ProjectID == "" {
		return project.Round{}, pkgerrors.ErrEmptyKey
	}

	r.Lock()
	defer r.Unlock()

	for _, existing := range r.rounds[rnd.ProjectID] {
		if existing.Number == rnd.Number || existing.ID == rnd.ID {
			return project.Round{}, pkgerrors.ErrEntityExists
		}
	}
	rounds := append(r.rounds[rnd.ProjectID], rnd)
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].Number < rounds[j].Number })
	r.rounds[rnd.ProjectID] = rounds

	return rnd, nil
}

func (r *memoryRoundRepo) Get(_ context.Context, projectID string, number uint64) (project.Round, error) {
	r.Lock()
	defer r.Unlock()

	for _, rnd := range r.rounds[projectID] {
		if rnd.Number == number {
			return rnd, nil
		}
	}

	return project.Round{}, pkgerrors.ErrNotFound
}

func (r *memoryRoundRepo) Latest(_ context.Context, projectID string) (project.Round, error) {
	r.Lock()
	defer r.Unlock()

	rounds := r.rounds[projectID]
	if len(rounds) == 0 {
		return project.Round{}, pkgerrors.ErrNotFound
	}

	return rounds[len(rounds)-1], nil
}

func (r *memoryRoundRepo) Update(_ context.Context, rnd project.Round) error {
	r.Lock()
	defer r.Unlock()

	rounds := r.rounds[rnd.ProjectID]
	for i := range rounds {
		if rounds[i].ID == rnd.ID {
			rounds[i] = rnd

			return nil
		}
	}

	return pkgerrors.ErrNotFound
}

func (r *memoryRoundRepo) List(_ context.Context, projectID string) ([]project.Round, error) {
	r.Lock()
	defer r.Unlock()

	return append([]project.Round(nil), r.rounds[projectID]...), nil
}

func (r *memoryRoundRepo) CountByStatus(_ context.Context, projectID string, status project.RoundStatus) (uint64, error) {
	r.Lock()
	defer r.Unlock()

	var n uint64
	for _, rnd := range r.rounds[projectID] {
		if rnd.Status == status {
			n++
		}
	}

	return n, nil
}

func (r *memoryRoundRepo) DeleteByProject(_ context.Context, projectID string) error {
	r.Lock()
	defer r.Unlock()
	delete(r.rounds, projectID)

	return nil
}

type memoryRequestRepo struct {
	sync.Mutex

	requests map[string]project.TrainingRequest
}

func NewInMemoryTrainingRequestRepository() TrainingRequestRepository {
	return &memoryRequestRepo{requests: make(map[string]project.TrainingRequest)}
}

func (r *memoryRequestRepo) Create(_ context.Context, tr project.TrainingRequest) error {
	if tr.ID == "" || tr.RoundID == "" {
		return pkgerrors.ErrEmptyKey
	}

	r.Lock()
	defer r.Unlock()

	for _, existing := range r.requests {
		if existing.ID == tr.ID || existing.RoundID == tr.RoundID {
			return pkgerrors.ErrEntityExists
		}
	}
	r.requests[tr.ID] = tr

	return nil
}

func (r *memoryRequestRepo) Get(_ context.Context, id string) (project.TrainingRequest, error) {
	r.Lock()
	defer r.Unlock()

	tr, ok := r.requests[id]
	if !ok {
		return project.TrainingRequest{}, pkgerrors.ErrNotFound
	}

	return tr, nil
}

func (r *memoryRequestRepo) GetByRound(_ context.Context, roundID string) (project.TrainingRequest, error) {
	r.Lock()
	defer r.Unlock()

	for _, tr := range r.requests {
		if tr.RoundID == roundID {
			return tr, nil
		}
	}

	return project.TrainingRequest{}, pkgerrors.ErrNotFound
}

func (r *memoryRequestRepo) DeleteByProject(_ context.Context, projectID string) error {
	r.Lock()
	defer r.Unlock()

	for id, tr := range r.requests {
		if tr.ProjectID == projectID {
			delete(r.requests, id)
		}
	}

	return nil
}

type memoryDeviceRepo struct {
	sync.Mutex

	devices map[string]device.Device
}

func NewInMemoryDeviceRepository() DeviceRepository {
	return &memoryDeviceRepo{devices: make(map[string]device.Device)}
}

func (r *memoryDeviceRepo) Create(_ context.Context, d device.Device) (device.Device, error) {
	if d.ID == "" {
		return device.Device{}, pkgerrors.ErrEmptyKey
	}

	r.Lock()
	defer r.Unlock()

	for _, existing := range r.devices {
		if existing.ID == d.ID || existing.Username == d.Username {
			return device.Device{}, pkgerrors.ErrEntityExists
		}
	}
	r.devices[d.ID] = d

	return d, nil
}

func (r *memoryDeviceRepo) Get(_ context.Context, id string) (device.Device, error) {
	r.Lock()
	defer r.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return device.Device{}, pkgerrors.ErrNotFound
	}

	return d, nil
}

func (r *memoryDeviceRepo) Update(_ context.Context, d device.Device) error {
	r.Lock()
	defer r.Unlock()

	if _, ok := r.devices[d.ID]; !ok {
		return pkgerrors.ErrNotFound
	}
	r.devices[d.ID] = d

	return nil
}

func (r *memoryDeviceRepo) sorted() []device.Device {
	all := make([]device.Device, 0, len(r.devices))
	for _, d := range r.devices {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })

	return all
}

func (r *memoryDeviceRepo) List(_ context.Context, offset, limit uint64) ([]device.Device, uint64, error) {
	r.Lock()
	defer r.Unlock()

	all := r.sorted()

	return page(all, offset, limit), uint64(len(all)), nil
}

func (r *memoryDeviceRepo) ListByProject(_ context.Context, projectID string) ([]device.Device, error) {
	r.Lock()
	defer r.Unlock()

	var res []device.Device
	for _, d := range r.sorted() {
		if d.ProjectID == projectID {
			res = append(res, d)
		}
	}

	return res, nil
}

func (r *memoryDeviceRepo) Delete(_ context.Context, id string) error {
	r.Lock()
	defer r.Unlock()

	if _, ok := r.devices[id]; !ok {
		return pkgerrors.ErrNotFound
	}
	delete(r.devices, id)

	return nil
}

type memoryReportRepo struct {
	sync.Mutex

	seq     uint64
	reports []device.StatusReport
}

func NewInMemoryStatusReportRepository() StatusReportRepository {
	return &memoryReportRepo{}
}

func (r *memoryReportRepo) Create(_ context.Context, rep device.StatusReport) (device.StatusReport, error) {
	if rep.ID == "" || rep.DeviceID == "" {
		return device.StatusReport{}, pkgerrors.ErrEmptyKey
	}

	r.Lock()
	defer r.Unlock()

	r.seq++
	rep.Seq = r.seq
	r.reports = append(r.reports, rep)

	return rep, nil
}

func (r *memoryReportRepo) ListWindow(_ context.Context, deviceIDs []string, from, to time.Time) ([]device.StatusReport, error) {
	ids := make(map[string]bool, len(deviceIDs))
	for _, id := range deviceIDs {
		ids[id] = true
	}

	r.Lock()
	defer r.Unlock()

	var res []device.StatusReport
	for _, rep := range r.reports {
		if ids[rep.DeviceID] && rep.Timestamp.After(from) && !rep.Timestamp.After(to) {
			res = append(res, rep)
		}
	}

	return res, nil
}

func (r *memoryReportRepo) Repliers(_ context.Context, requestID string) ([]string, error) {
	r.Lock()
	defer r.Unlock()

	seen := map[string]bool{}
	var res []string
	for _, rep := range r.reports {
		if rep.RequestType != device.TrainAck || rep.RequestID != requestID || seen[rep.DeviceID] {
			continue
		}
		seen[rep.DeviceID] = true
		res = append(res, rep.DeviceID)
	}

	return res, nil
}

type memoryJoinedRepo struct {
	sync.Mutex

	joined map[[2]string]device.JoinedRound
}

func NewInMemoryJoinedRoundRepository() JoinedRoundRepository {
	return &memoryJoinedRepo{joined: make(map[[2]string]device.JoinedRound)}
}

func (r *memoryJoinedRepo) Save(_ context.Context, j device.JoinedRound) error {
	if j.DeviceID == "" || j.RoundID == "" {
		return pkgerrors.ErrEmptyKey
	}

	r.Lock()
	defer r.Unlock()
	r.joined[[2]string{j.DeviceID, j.RoundID}] = j

	return nil
}

func (r *memoryJoinedRepo) ListByRound(_ context.Context, roundID string) ([]device.JoinedRound, error) {
	r.Lock()
	defer r.Unlock()

	var res []device.JoinedRound
	for _, j := range r.joined {
		if j.RoundID == roundID {
			res = append(res, j)
		}
	}
	sort.Slice(res, func(i, k int) bool { return res[i].DeviceID < res[k].DeviceID })

	return res, nil
}

func (r *memoryJoinedRepo) DeleteByProject(_ context.Context, projectID string) error {
	r.Lock()
	defer r.Unlock()

	for k, j := range r.joined {
		if j.ProjectID == projectID {
			delete(r.joined, k)
		}
	}

	return nil
}

type memoryNotificationRepo struct {
	sync.Mutex

	sent []project.Notification
}

func NewInMemoryNotificationRepository() NotificationRepository {
	return &memoryNotificationRepo{}
}

func (r *memoryNotificationRepo) Create(_ context.Context, n project.Notification) error {
	r.Lock()
	defer r.Unlock()
	r.sent = append(r.sent, n)

	return nil
}

func (r *memoryNotificationRepo) Latest(_ context.Context) (project.Notification, error) {
	r.Lock()
	defer r.Unlock()

	if len(r.sent) == 0 {
		return project.Notification{}, pkgerrors.ErrNotFound
	}
	latest := r.sent[0]
	for _, n := range r.sent[1:] {
		if n.SentAt.After(latest.SentAt) {
			latest = n
		}
	}

	return latest, nil
}
