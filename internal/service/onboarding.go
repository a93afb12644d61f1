// onboarding.go — пошаговое оформление принятого кандидата.
//
// Шаги выполняются строго по порядку; следующий шаг вычисляется по
// флагам записи. После каждого шага запись загружается заново.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Harinie05/HRM-sub002/internal/backend"
	"github.com/Harinie05/HRM-sub002/internal/domain/model"
	"github.com/Harinie05/HRM-sub002/internal/resource"
)

const onboardingResource = "onboarding"

// OnboardingStep — шаг оформления.
type OnboardingStep struct {
	Key   string
	Title string
	// Flag — поле записи, отмечающее завершение шага.
	Flag   string
	Method string
	// Suffix добавляется к пути записи.
	Suffix string
	Upload bool
	// Invalidates — коллекции, устаревающие после шага.
	Invalidates []string
}

// OnboardingSteps — шаги в порядке выполнения.
var OnboardingSteps = []OnboardingStep{
	{
		Key: "documents", Title: "Upload documents", Flag: "documents_uploaded",
		Method: http.MethodPost, Suffix: "/documents", Upload: true,
		Invalidates: []string{onboardingResource},
	},
	{
		Key: "verify", Title: "Verify documents", Flag: "documents_verified",
		Method: http.MethodPatch, Suffix: "/documents/verify",
		Invalidates: []string{onboardingResource},
	},
	{
		Key: "appointment", Title: "Issue appointment letter", Flag: "appointment_letter_issued",
		Method: http.MethodPost, Suffix: "/appointment-letter",
		Invalidates: []string{onboardingResource},
	},
	{
		Key: "employee", Title: "Create employee", Flag: "employee_created",
		Method: http.MethodPost, Suffix: "/create-employee",
		Invalidates: []string{onboardingResource, "employees"},
	},
}

// StepState — состояние шага для конкретной записи.
type StepState struct {
	OnboardingStep
	Done bool
	// Available — шаг следующий по порядку и может быть выполнен.
	Available bool
}

// NextStep возвращает первый незавершённый шаг. ok=false, если все шаги выполнены.
// Шаг считается незавершённым, если не завершён он сам или любой предыдущий.
func NextStep(rec model.Record) (OnboardingStep, bool) {
	for _, st := range OnboardingSteps {
		if !rec.Bool(st.Flag) {
			return st, true
		}
	}
	return OnboardingStep{}, false
}

// Steps возвращает состояние всех шагов записи.
func Steps(rec model.Record) []StepState {
	next, hasNext := NextStep(rec)
	states := make([]StepState, len(OnboardingSteps))
	reached := false
	for i, st := range OnboardingSteps {
		isNext := hasNext && st.Key == next.Key
		if isNext {
			reached = true
		}
		states[i] = StepState{
			OnboardingStep: st,
			Done:           !reached && rec.Bool(st.Flag),
			Available:      isNext,
		}
	}
	return states
}

// Document — загружаемый документ кандидата.
type Document struct {
	Filename string
	Kind     string
	Content  io.Reader
}

// OnboardingService выполняет шаги оформления.
type OnboardingService struct {
	data   *DataLayer
	client BackendClient
	logger *slog.Logger
}

// NewOnboardingService создаёт сервис оформления.
func NewOnboardingService(data *DataLayer, client BackendClient, logger *slog.Logger) *OnboardingService {
	return &OnboardingService{
		data:   data,
		client: client,
		logger: logger.With(slog.String("component", "onboarding")),
	}
}

func (s *OnboardingService) resource() (*resource.Resource, error) {
	res, ok := s.data.Catalog().Get(onboardingResource)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, onboardingResource)
	}
	return res, nil
}

// Load загружает запись оформления.
func (s *OnboardingService) Load(ctx context.Context, sc Scope, id string) (model.Record, error) {
	res, err := s.resource()
	if err != nil {
		return nil, err
	}
	return s.data.FetchOne(ctx, sc, res, id)
}

// Advance выполняет шаг stepKey, если он следующий по порядку, и
// возвращает заново загруженную запись. doc обязателен для шага загрузки.
func (s *OnboardingService) Advance(ctx context.Context, sc Scope, id, stepKey string, doc *Document) (model.Record, error) {
	res, err := s.resource()
	if err != nil {
		return nil, err
	}
	if !sc.Can(res.Permissions.Edit) {
		return nil, ErrForbidden
	}

	rec, err := s.data.FetchOne(ctx, sc, res, id)
	if err != nil {
		return nil, err
	}
	step, ok := NextStep(rec)
	if !ok || step.Key != stepKey {
		return rec, fmt.Errorf("%w: %s", ErrStepUnavailable, stepKey)
	}

	var stepErr error
	if step.Upload {
		stepErr = s.upload(ctx, sc, res, id, step, doc)
		if stepErr == nil || !errors.Is(stepErr, ErrValidation) {
			s.data.Refresh(ctx, sc, step.Invalidates)
		}
	} else {
		result := s.data.Mutate(ctx, sc, Mutation{
			Resource:    res,
			Method:      step.Method,
			ID:          id,
			Path:        res.Item + step.Suffix,
			Body:        map[string]any{},
			Capability:  res.Permissions.Edit,
			Invalidates: step.Invalidates,
		})
		stepErr = result.Err
	}

	if stepErr != nil {
		s.logger.Warn("Шаг оформления не выполнен",
			slog.String("id", id),
			slog.String("step", step.Key),
			slog.String("error", stepErr.Error()),
		)
	} else {
		s.logger.Info("Шаг оформления выполнен",
			slog.String("id", id),
			slog.String("step", step.Key),
		)
	}

	fresh, err := s.data.FetchOne(ctx, sc, res, id)
	if err != nil {
		if stepErr != nil {
			return rec, stepErr
		}
		return rec, err
	}
	return fresh, stepErr
}

func (s *OnboardingService) upload(ctx context.Context, sc Scope, res *resource.Resource, id string, step OnboardingStep, doc *Document) error {
	if doc == nil || doc.Content == nil || doc.Filename == "" {
		return &ValidationError{Fields: map[string]string{"document": "A document file is required"}}
	}
	path, err := backend.ExpandPath(res.Item+step.Suffix, sc.Creds.Tenant, id)
	if err != nil {
		return err
	}
	fields := map[string]string{}
	if doc.Kind != "" {
		fields["document_type"] = doc.Kind
	}
	return s.client.Upload(ctx, sc.Creds, path, "file", doc.Filename, doc.Content, fields, nil)
}
