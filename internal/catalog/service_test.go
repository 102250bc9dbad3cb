package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/open-procurement/ecatalog/internal/models"
	"github.com/open-procurement/ecatalog/internal/standards"
	"github.com/open-procurement/ecatalog/internal/storage"
	"github.com/open-procurement/ecatalog/internal/validation"
)

func testRegistry() *standards.Registry {
	return standards.NewStaticRegistry(
		map[string]standards.UnitEntry{
			"KGM": {Name: "кілограми"},
			"H87": {Name: "штук"},
		},
		map[string]map[string]string{
			"ДК021": {
				"03222111-4": "Банани",
				"33912100-7": "Секційні столи для розтинів",
			},
			"GMDN": {"11785": "Секційний стіл"},
		},
	)
}

func testService() (*Service, *storage.MemoryRepository) {
	repo := storage.NewMemoryRepository()
	return NewService(repo, testRegistry(), nil), repo
}

func strPtr(s string) *string { return &s }

func rawNum(s string) json.RawMessage {
	return json.RawMessage(`"` + s + `"`)
}

func validCreate() models.CriterionCreate {
	return models.CriterionCreate{
		Name:           strPtr("Вміст цукру"),
		NameEng:        strPtr("Sugar content"),
		DataType:       "number",
		MinValue:       rawNum("0"),
		MaxValue:       rawNum("100"),
		Classification: &models.ClassificationInput{ID: "03222111-4"},
		Unit:           &models.UnitInput{Code: "KGM"},
	}
}

func TestCreateCriterion(t *testing.T) {
	svc, _ := testService()

	criterion, err := svc.Create(context.Background(), validCreate())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if criterion.ID == uuid.Nil {
		t.Error("expected a generated id")
	}
	if criterion.Status != models.CriterionActive {
		t.Errorf("expected active status, got %s", criterion.Status)
	}
	if criterion.DateModified.IsZero() {
		t.Error("expected dateModified to be stamped")
	}
	if criterion.Unit.Name != "кілограми" {
		t.Errorf("expected enriched unit name, got %q", criterion.Unit.Name)
	}
	if criterion.Classification.Scheme != "ДК021" {
		t.Errorf("expected stamped scheme, got %q", criterion.Classification.Scheme)
	}
	if criterion.Classification.Description != "Банани" {
		t.Errorf("expected enriched description, got %q", criterion.Classification.Description)
	}
}

func TestCreateCriterionCollectsFieldErrors(t *testing.T) {
	svc, _ := testService()

	_, err := svc.Create(context.Background(), models.CriterionCreate{})
	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}

	for _, field := range []string{"dataType", "classification", "unit"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("expected error for %s, got %v", field, verr.Fields)
		}
	}
}

func TestCreateCriterionMinAboveMax(t *testing.T) {
	svc, _ := testService()

	in := validCreate()
	in.MinValue = rawNum("10")
	in.MaxValue = rawNum("5")

	_, err := svc.Create(context.Background(), in)
	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Fields["minValue"] != validation.MinMaxMessage {
		t.Errorf("expected min/max message, got %v", verr.Fields["minValue"])
	}
}

func TestCreateCriterionNonNumericBound(t *testing.T) {
	svc, _ := testService()

	in := validCreate()
	in.MinValue = json.RawMessage(`"багато"`)

	_, err := svc.Create(context.Background(), in)
	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Fields["minValue"] != "Must be a number" {
		t.Errorf("expected field-scoped number error, got %v", verr.Fields)
	}

	// Bare JSON numbers stay accepted
	in = validCreate()
	in.MaxValue = json.RawMessage(`95.5`)
	created, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.MaxValue != "95.5" {
		t.Errorf("expected 95.5, got %q", created.MaxValue)
	}
}

func TestRetrieveCriterion(t *testing.T) {
	svc, _ := testService()

	created, err := svc.Create(context.Background(), validCreate())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := svc.Retrieve(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("expected %s, got %s", created.ID, got.ID)
	}

	if _, err := svc.Retrieve(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPatchCriterionUnknownFields(t *testing.T) {
	svc, _ := testService()

	created, err := svc.Create(context.Background(), validCreate())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	payload := map[string]json.RawMessage{
		"shape": json.RawMessage(`"round"`),
		"color": json.RawMessage(`"green"`),
		"name":  json.RawMessage(`"ok"`),
	}
	_, err = svc.Patch(context.Background(), created.ID, payload)

	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := "Got unknown fields for PATCH: color, shape"
	if verr.Fields["detail"] != want {
		t.Errorf("expected %q, got %v", want, verr.Fields["detail"])
	}

	// Nothing applied
	unchanged, err := svc.Retrieve(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if unchanged.Name != *validCreate().Name {
		t.Errorf("patch should not have applied, name is %q", unchanged.Name)
	}
}

func TestPatchCriterion(t *testing.T) {
	svc, _ := testService()

	created, err := svc.Create(context.Background(), validCreate())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	payload := map[string]json.RawMessage{
		"name":     json.RawMessage(`"Вміст солі"`),
		"maxValue": json.RawMessage(`50`),
	}
	patched, err := svc.Patch(context.Background(), created.ID, payload)
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if patched.Name != "Вміст солі" {
		t.Errorf("expected patched name, got %q", patched.Name)
	}
	if patched.MaxValue != "50" {
		t.Errorf("expected maxValue 50, got %q", patched.MaxValue)
	}
	if !patched.DateModified.After(created.DateModified) {
		t.Error("expected dateModified bump")
	}
}

func TestPatchCriterionMergedBoundsCheck(t *testing.T) {
	svc, _ := testService()

	created, err := svc.Create(context.Background(), validCreate())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Stored minValue is 0; lowering maxValue below it must fail against the
	// merged state.
	payload := map[string]json.RawMessage{"maxValue": json.RawMessage(`-1`)}
	_, err = svc.Patch(context.Background(), created.ID, payload)

	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Fields["minValue"] != validation.MinMaxMessage {
		t.Errorf("expected min/max message, got %v", verr.Fields)
	}
}

func TestCriterionStatusLifecycle(t *testing.T) {
	svc, _ := testService()

	created, err := svc.Create(context.Background(), validCreate())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	retired, err := svc.Retire(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Retire failed: %v", err)
	}
	if retired.Status != models.CriterionRetired {
		t.Errorf("expected retired, got %s", retired.Status)
	}

	// Retire is idempotent
	again, err := svc.Retire(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("second Retire failed: %v", err)
	}
	if again.Status != models.CriterionRetired {
		t.Errorf("expected retired, got %s", again.Status)
	}

	// Retired criteria cannot reactivate
	payload := map[string]json.RawMessage{"status": json.RawMessage(`"active"`)}
	_, err = svc.Patch(context.Background(), created.ID, payload)
	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := verr.Fields["status"]; !ok {
		t.Errorf("expected status error, got %v", verr.Fields)
	}
}

func TestResolveActive(t *testing.T) {
	svc, _ := testService()

	created, err := svc.Create(context.Background(), validCreate())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := svc.ResolveActive(context.Background(), created.ID); err != nil {
		t.Fatalf("ResolveActive failed: %v", err)
	}

	if _, err := svc.Retire(context.Background(), created.ID); err != nil {
		t.Fatalf("Retire failed: %v", err)
	}
	if _, err := svc.ResolveActive(context.Background(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("retired criterion should not resolve, got %v", err)
	}
}

func TestListCriteriaStatusFilter(t *testing.T) {
	svc, _ := testService()
	ctx := context.Background()

	active, err := svc.Create(ctx, validCreate())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	retired, err := svc.Create(ctx, validCreate())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Retire(ctx, retired.ID); err != nil {
		t.Fatalf("Retire failed: %v", err)
	}

	// Default narrows to active
	defaultList, err := svc.List(ctx, models.CriteriaFilters{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(defaultList) != 1 || defaultList[0].ID != active.ID {
		t.Errorf("expected only the active criterion, got %d items", len(defaultList))
	}

	// "all" disables the filter
	allList, err := svc.List(ctx, models.CriteriaFilters{Status: models.StatusAll})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(allList) != 2 {
		t.Errorf("expected both criteria, got %d", len(allList))
	}
}
