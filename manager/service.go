package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/absmach/flaas/pkg/blob"
	"github.com/absmach/flaas/pkg/device"
	pkgerrors "github.com/absmach/flaas/pkg/errors"
	"github.com/absmach/flaas/pkg/fl"
	"github.com/absmach/flaas/pkg/mqtt"
	"github.com/absmach/flaas/pkg/notify"
	"github.com/absmach/flaas/pkg/project"
	"github.com/absmach/flaas/pkg/storage"
	"github.com/google/uuid"
)

const listAllLimit = 1000

var (
	ErrModelTemplate  = errors.New("model template not found")
	ErrNotEnrolled    = errors.New("device is not enrolled in the project")
	ErrProjectStatus  = errors.New("operation not allowed in the current project status")
	ErrEmptyWeights   = errors.New("weights must be a non-empty multiple of 4 bytes")
	ErrMissingDevices = errors.New("no devices given")
)

type Config struct {
	// Lookback bounds the age of status reports considered for eligibility.
	Lookback      time.Duration `env:"LOOKBACK"     envDefault:"60m"`
	TopicPrefix   string        `env:"TOPIC_PREFIX" envDefault:"flaas"`
	Questionnaire QuestionnaireConfig `envPrefix:"QUESTIONNAIRE_"`
}

type service struct {
	repos         *storage.Repositories
	blobs         blob.Store
	notifier      notify.Notifier
	pubsub        mqtt.PubSub
	controller    *Controller
	questionnaire QuestionnaireConfig
	topicPrefix   string
	clock         func() time.Time
	logger        *slog.Logger
}

type Option func(*service)

// WithClock replaces the wall clock used to timestamp reports and drive
// ticks.
func WithClock(clock func() time.Time) Option {
	return func(s *service) {
		s.clock = clock
	}
}

// WithPubSub enables MQTT ingestion through Subscribe.
func WithPubSub(ps mqtt.PubSub) Option {
	return func(s *service) {
		s.pubsub = ps
	}
}

func NewService(repos *storage.Repositories, blobs blob.Store, notifier notify.Notifier, cfg Config, logger *slog.Logger, opts ...Option) Service {
	svc := &service{
		repos:         repos,
		blobs:         blobs,
		notifier:      notifier,
		controller:    NewController(repos, blobs, notifier, cfg.Lookback, logger),
		questionnaire: cfg.Questionnaire.withDefaults(),
		topicPrefix:   cfg.TopicPrefix,
		clock:         time.Now,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

func (svc *service) now() time.Time {
	return svc.clock().UTC()
}

func (svc *service) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return project.Project{}, errors.Join(pkgerrors.ErrValidation, err)
	}

	ok, err := svc.blobs.Exists(ctx, blob.TemplatePath(p.Model))
	if err != nil {
		return project.Project{}, errors.Join(pkgerrors.ErrExternalService, err)
	}
	if !ok {
		return project.Project{}, errors.Join(pkgerrors.ErrValidation, fmt.Errorf("%w: %s", ErrModelTemplate, p.Model))
	}

	now := svc.now()
	p.ID = uuid.NewString()
	p.Status = project.Stopped
	p.CurrentRound = 0
	p.CreatedAt = now
	p.UpdatedAt = now

	if p, err = svc.repos.Projects.Create(ctx, p); err != nil {
		return project.Project{}, err
	}
	if err := svc.initRounds(ctx, p, now); err != nil {
		return project.Project{}, err
	}

	return p, nil
}

// initRounds creates round 0 and seeds its model from the template.
func (svc *service) initRounds(ctx context.Context, p project.Project, now time.Time) error {
	if _, err := svc.repos.Rounds.Create(ctx, project.NewRound(uuid.NewString(), p, 0, now)); err != nil {
		return err
	}
	if err := fl.SeedModel(ctx, svc.blobs, p.Model, p.ID, 0); err != nil {
		return errors.Join(pkgerrors.ErrExternalService, err)
	}

	return nil
}

func (svc *service) GetProject(ctx context.Context, projectID string) (project.Project, error) {
	return svc.repos.Projects.Get(ctx, projectID)
}

func (svc *service) ListProjects(ctx context.Context, offset, limit uint64) (project.ProjectPage, error) {
	projects, total, err := svc.repos.Projects.List(ctx, offset, limit)
	if err != nil {
		return project.ProjectPage{}, err
	}

	return project.ProjectPage{
		Offset:   offset,
		Limit:    limit,
		Total:    total,
		Projects: projects,
	}, nil
}

func (svc *service) UpdateProject(ctx context.Context, p project.Project) (project.Project, error) {
	var updated project.Project
	err := svc.controller.exclusive(func() error {
		current, err := svc.repos.Projects.Get(ctx, p.ID)
		if err != nil {
			return err
		}

		// Identity, lifecycle and the model stay as they are.
		p.Status = current.Status
		p.CurrentRound = current.CurrentRound
		p.Model = current.Model
		p.CreatedAt = current.CreatedAt
		p.UpdatedAt = svc.now()
		p = p.WithDefaults()
		if err := p.Validate(); err != nil {
			return errors.Join(pkgerrors.ErrValidation, err)
		}
		if err := svc.repos.Projects.Update(ctx, p); err != nil {
			return err
		}
		updated = p

		return nil
	})

	return updated, err
}

func (svc *service) StartProject(ctx context.Context, projectID string) (project.Project, error) {
	return svc.setStatus(ctx, projectID, project.InProgress)
}

func (svc *service) StopProject(ctx context.Context, projectID string) (project.Project, error) {
	return svc.setStatus(ctx, projectID, project.Stopped)
}

// setStatus toggles between Stopped and InProgress. Completed projects only
// leave that status through ResetProject.
func (svc *service) setStatus(ctx context.Context, projectID string, status project.Status) (project.Project, error) {
	var p project.Project
	err := svc.controller.exclusive(func() error {
		var err error
		if p, err = svc.repos.Projects.Get(ctx, projectID); err != nil {
			return err
		}
		if p.Status == project.Completed {
			return errors.Join(pkgerrors.ErrIllegalState, fmt.Errorf("%w: %s", ErrProjectStatus, p.Status))
		}
		if p.Status == status {
			return nil
		}
		p.Status = status
		p.UpdatedAt = svc.now()

		return svc.repos.Projects.Update(ctx, p)
	})
	if err != nil {
		return project.Project{}, err
	}

	return p, nil
}

func (svc *service) ResetProject(ctx context.Context, projectID string) (project.Project, error) {
	var p project.Project
	err := svc.controller.exclusive(func() error {
		var err error
		if p, err = svc.repos.Projects.Get(ctx, projectID); err != nil {
			return err
		}
		if err := svc.dropRounds(ctx, projectID); err != nil {
			return err
		}

		now := svc.now()
		p.CurrentRound = 0
		if p.Status == project.Completed {
			p.Status = project.Stopped
		}
		p.UpdatedAt = now
		if err := svc.repos.Projects.Update(ctx, p); err != nil {
			return err
		}

		return svc.initRounds(ctx, p, now)
	})
	if err != nil {
		return project.Project{}, err
	}

	return p, nil
}

func (svc *service) DeleteProject(ctx context.Context, projectID string) error {
	return svc.controller.exclusive(func() error {
		if _, err := svc.repos.Projects.Get(ctx, projectID); err != nil {
			return err
		}
		if err := svc.dropRounds(ctx, projectID); err != nil {
			return err
		}

		devices, err := svc.repos.Devices.ListByProject(ctx, projectID)
		if err != nil {
			return err
		}
		for _, d := range devices {
			d.ProjectID = ""
			d.UpdatedAt = svc.now()
			if err := svc.repos.Devices.Update(ctx, d); err != nil {
				return err
			}
		}

		return svc.repos.Projects.Delete(ctx, projectID)
	})
}

// dropRounds removes every round of a project together with its requests,
// join progress and model artifacts. Status reports are kept.
func (svc *service) dropRounds(ctx context.Context, projectID string) error {
	if err := svc.repos.JoinedRounds.DeleteByProject(ctx, projectID); err != nil {
		return err
	}
	if err := svc.repos.TrainingRequests.DeleteByProject(ctx, projectID); err != nil {
		return err
	}
	if err := svc.repos.Rounds.DeleteByProject(ctx, projectID); err != nil {
		return err
	}
	if err := svc.blobs.Delete(ctx, blob.ProjectPath(projectID)); err != nil && !errors.Is(err, pkgerrors.ErrNotFound) {
		return errors.Join(pkgerrors.ErrExternalService, err)
	}

	return nil
}

func (svc *service) ListRounds(ctx context.Context, projectID string) ([]project.Round, error) {
	if _, err := svc.repos.Projects.Get(ctx, projectID); err != nil {
		return nil, err
	}

	return svc.repos.Rounds.List(ctx, projectID)
}

func (svc *service) GetRound(ctx context.Context, projectID string, number uint64) (project.Round, error) {
	return svc.repos.Rounds.Get(ctx, projectID, number)
}

func (svc *service) GetRoundReport(ctx context.Context, projectID string, number uint64) (fl.RoundReport, error) {
	if _, err := svc.repos.Rounds.Get(ctx, projectID, number); err != nil {
		return fl.RoundReport{}, err
	}

	return fl.Report(ctx, svc.blobs, svc.logger, projectID, number)
}

func (svc *service) RegisterDevice(ctx context.Context, d device.Device) (device.Device, error) {
	if strings.TrimSpace(d.Username) == "" {
		return device.Device{}, errors.Join(pkgerrors.ErrValidation, fmt.Errorf("%w: username", device.ErrMissingField))
	}
	if d.ProjectID != "" {
		if _, err := svc.repos.Projects.Get(ctx, d.ProjectID); err != nil {
			return device.Device{}, err
		}
	}

	now := svc.now()
	d.ID = uuid.NewString()
	d.CreatedAt = now
	d.UpdatedAt = now

	return svc.repos.Devices.Create(ctx, d)
}

func (svc *service) GetDevice(ctx context.Context, deviceID string) (device.Device, error) {
	return svc.repos.Devices.Get(ctx, deviceID)
}

func (svc *service) ListDevices(ctx context.Context, offset, limit uint64) (device.DevicePage, error) {
	devices, total, err := svc.repos.Devices.List(ctx, offset, limit)
	if err != nil {
		return device.DevicePage{}, err
	}

	return device.DevicePage{
		Offset:  offset,
		Limit:   limit,
		Total:   total,
		Devices: devices,
	}, nil
}

// AssignDevices enrolls the devices into projectID, or unenrolls them when
// projectID is empty. It never overlaps a tick.
func (svc *service) AssignDevices(ctx context.Context, projectID string, deviceIDs []string) ([]device.Device, error) {
	if len(deviceIDs) == 0 {
		return nil, errors.Join(pkgerrors.ErrValidation, ErrMissingDevices)
	}

	var devices []device.Device
	err := svc.controller.exclusive(func() error {
		if projectID != "" {
			if _, err := svc.repos.Projects.Get(ctx, projectID); err != nil {
				return err
			}
		}

		devices = make([]device.Device, 0, len(deviceIDs))
		for _, id := range deviceIDs {
			d, err := svc.repos.Devices.Get(ctx, id)
			if err != nil {
				return err
			}
			devices = append(devices, d)
		}

		now := svc.now()
		for i := range devices {
			devices[i].ProjectID = projectID
			devices[i].UpdatedAt = now
			if err := svc.repos.Devices.Update(ctx, devices[i]); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return devices, nil
}

func (svc *service) DeleteDevice(ctx context.Context, deviceID string) error {
	return svc.controller.exclusive(func() error {
		return svc.repos.Devices.Delete(ctx, deviceID)
	})
}

func (svc *service) ReportStatus(ctx context.Context, deviceID string, report device.Report) (device.StatusReport, error) {
	if err := report.Validate(); err != nil {
		return device.StatusReport{}, errors.Join(pkgerrors.ErrValidation, err)
	}

	d, err := svc.repos.Devices.Get(ctx, deviceID)
	if err != nil {
		return device.StatusReport{}, err
	}

	if report.RequestType == device.TrainAck {
		req, err := svc.repos.TrainingRequests.Get(ctx, report.RequestID)
		if err != nil {
			return device.StatusReport{}, err
		}
		if d.ProjectID != req.ProjectID {
			return device.StatusReport{}, errors.Join(pkgerrors.ErrValidation, fmt.Errorf("%w: %s", ErrNotEnrolled, req.ProjectID))
		}
	}

	now := svc.now()
	if report.Status.Details != nil {
		d = d.ApplyDetails(*report.Status.Details)
		d.UpdatedAt = now
		if err := svc.repos.Devices.Update(ctx, d); err != nil {
			return device.StatusReport{}, err
		}
	}

	return svc.repos.StatusReports.Create(ctx, device.StatusReport{
		ID:          uuid.NewString(),
		DeviceID:    d.ID,
		RequestType: report.RequestType,
		RequestID:   report.RequestID,
		Timestamp:   now,
		Payload:     report.Status,
	})
}

func (svc *service) JoinRound(ctx context.Context, deviceID, projectID string, number uint64, status device.JoinStatus) (project.Round, error) {
	if status < device.Joined || status > device.CompleteRound {
		return project.Round{}, errors.Join(pkgerrors.ErrValidation, fmt.Errorf("%w: %d", device.ErrJoinStatus, status))
	}

	d, err := svc.enrolled(ctx, deviceID, projectID)
	if err != nil {
		return project.Round{}, err
	}

	r, err := svc.repos.Rounds.Get(ctx, projectID, number)
	if err != nil {
		return project.Round{}, err
	}

	if err := svc.repos.JoinedRounds.Save(ctx, device.JoinedRound{
		DeviceID:    d.ID,
		RoundID:     r.ID,
		ProjectID:   projectID,
		RoundNumber: r.Number,
		Status:      status,
		UpdatedAt:   svc.now(),
	}); err != nil {
		return project.Round{}, err
	}

	return r, nil
}

func (svc *service) ListJoined(ctx context.Context, projectID string, number uint64) ([]device.JoinedRound, error) {
	r, err := svc.repos.Rounds.Get(ctx, projectID, number)
	if err != nil {
		return nil, err
	}

	return svc.repos.JoinedRounds.ListByRound(ctx, r.ID)
}

func (svc *service) GetModel(ctx context.Context, projectID string, number uint64) ([]byte, error) {
	if _, err := svc.repos.Rounds.Get(ctx, projectID, number); err != nil {
		return nil, err
	}

	return svc.blobs.Read(ctx, blob.RoundModelPath(projectID, number))
}

func (svc *service) SubmitModel(ctx context.Context, deviceID, projectID string, number uint64, weights []byte) error {
	if len(weights) == 0 || len(weights)%4 != 0 {
		return errors.Join(pkgerrors.ErrValidation, fmt.Errorf("%w: got %d bytes", ErrEmptyWeights, len(weights)))
	}
	if _, err := svc.enrolled(ctx, deviceID, projectID); err != nil {
		return err
	}
	if _, err := svc.repos.Rounds.Get(ctx, projectID, number); err != nil {
		return err
	}

	if err := svc.blobs.Write(ctx, blob.DeviceModelPath(projectID, number, deviceID), weights); err != nil {
		return errors.Join(pkgerrors.ErrExternalService, err)
	}

	return nil
}

func (svc *service) SubmitResults(ctx context.Context, deviceID, projectID string, number uint64, results fl.Results) error {
	if err := results.Validate(); err != nil {
		return errors.Join(pkgerrors.ErrValidation, err)
	}
	if _, err := svc.enrolled(ctx, deviceID, projectID); err != nil {
		return err
	}
	if _, err := svc.repos.Rounds.Get(ctx, projectID, number); err != nil {
		return err
	}

	data, err := json.Marshal(results)
	if err != nil {
		return err
	}
	if err := svc.blobs.Write(ctx, blob.DeviceResultsPath(projectID, number, deviceID), data); err != nil {
		return errors.Join(pkgerrors.ErrExternalService, err)
	}

	return nil
}

func (svc *service) enrolled(ctx context.Context, deviceID, projectID string) (device.Device, error) {
	d, err := svc.repos.Devices.Get(ctx, deviceID)
	if err != nil {
		return device.Device{}, err
	}
	if d.ProjectID != projectID {
		return device.Device{}, errors.Join(pkgerrors.ErrValidation, fmt.Errorf("%w: %s", ErrNotEnrolled, projectID))
	}

	return d, nil
}

func (svc *service) Tick(ctx context.Context) (int, error) {
	return svc.controller.Tick(ctx, svc.now())
}

func (svc *service) SendQuestionnaires(ctx context.Context) (project.Notification, error) {
	return sendQuestionnaires(ctx, svc.repos, svc.notifier, svc.questionnaire, svc.now(), svc.logger)
}

// allUsernames lists the push identities of every registered device.
func allUsernames(ctx context.Context, devices storage.DeviceRepository) ([]string, error) {
	var (
		names  []string
		offset uint64
	)
	for {
		page, total, err := devices.List(ctx, offset, listAllLimit)
		if err != nil {
			return nil, err
		}
		for _, d := range page {
			names = append(names, d.Username)
		}
		offset += uint64(len(page))
		if len(page) == 0 || offset >= total {
			return names, nil
		}
	}
}
