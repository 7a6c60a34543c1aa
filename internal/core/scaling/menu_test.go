package scaling

import (
	"context"
	"errors"
	"testing"
	"time"

	"catering-planner/internal/core/allergy"
	"catering-planner/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPolicy 記錄每次請求的目標份量
type recordingPolicy struct {
	targets map[string]float64
	failFor string
}

func (p *recordingPolicy) Name() string { return "recording" }

func (p *recordingPolicy) Scale(ctx context.Context, req Request) (*Result, error) {
	p.targets[req.Recipe.ID] = req.TargetServings
	if req.Recipe.ID == p.failFor {
		return nil, errors.New("unparseable output")
	}
	return &Result{Ingredients: []string{"scaled " + req.Recipe.Name}}, nil
}

func newMenuScaler(p Policy) *MenuScaler {
	return NewMenuScaler(NewScaler(p, time.Second), allergy.NewResolver(nil), 10, 0.08)
}

var gala = common.Event{ID: "evt_gala", Name: "Gala", GuestCount: 45, StaffCount: 5}

func TestScaleMenu(t *testing.T) {
	policy := &recordingPolicy{targets: map[string]float64{}}
	m := newMenuScaler(policy)

	recipes := []common.Recipe{
		{ID: "near", Name: "Near", Serves: 52},
		{ID: "far", Name: "Far", Serves: 48},
		{ID: "satay", Name: "Satay", Serves: 10, IngredientIDs: []string{"ing_peanut"}},
	}
	allergies := []common.AllergyRecord{
		{ID: "alg_1", PersonName: "Alex", Allergies: []string{"peanuts"}, IngredientIDs: []string{"ing_peanut"}},
	}

	res, err := m.ScaleMenu(context.Background(), gala, recipes, allergies)
	require.NoError(t, err)
	assert.Equal(t, 50, res.HeadCount)
	assert.Equal(t, []string{"near", "far", "satay"}, res.Order)
	assert.Empty(t, res.Failed)

	near := res.Entries["near"]
	assert.Equal(t, EntryUnchanged, near.Status)
	assert.Equal(t, 55, near.TargetServings)
	assert.Nil(t, near.Scaled)
	require.NotNil(t, near.Recipe)
	assert.Equal(t, 52.0, near.Recipe.Serves)

	far := res.Entries["far"]
	assert.Equal(t, EntryScaled, far.Status)
	require.NotNil(t, far.Scaled)
	assert.Equal(t, common.ScalingEventMenu, far.Scaled.ScalingMethod)
	assert.Equal(t, 55.0, far.Scaled.ScaledServings)
	assert.Empty(t, far.Scaled.ScalingWarning)

	satay := res.Entries["satay"]
	assert.Equal(t, EntryScaled, satay.Status)
	assert.Equal(t, 1, satay.Excluded)
	assert.Equal(t, 49, satay.HeadCount)
	assert.Equal(t, 54, satay.TargetServings)
	assert.Contains(t, satay.Scaled.ScalingWarning, "1 of 50 people excluded")
	assert.Contains(t, satay.Scaled.ScalingWarning, "Alex (peanuts)")

	assert.Equal(t, map[string]float64{"far": 55, "satay": 54}, policy.targets)
}

func TestScaleMenuMissingServingsAborts(t *testing.T) {
	policy := &recordingPolicy{targets: map[string]float64{}}
	m := newMenuScaler(policy)

	recipes := []common.Recipe{
		{ID: "ok", Name: "Ok", Serves: 10},
		{ID: "bad", Name: "Bad"},
	}
	_, err := m.ScaleMenu(context.Background(), gala, recipes, nil)
	require.Error(t, err)

	var missing *common.MissingServingsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "bad", missing.RecipeID)
	assert.Empty(t, policy.targets)
}

func TestScaleMenuReportsFailures(t *testing.T) {
	policy := &recordingPolicy{targets: map[string]float64{}, failFor: "b"}
	m := newMenuScaler(policy)

	recipes := []common.Recipe{
		{ID: "a", Name: "A", Serves: 10},
		{ID: "b", Name: "B", Serves: 10},
	}
	res, err := m.ScaleMenu(context.Background(), gala, recipes, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, res.Failed)
	assert.Equal(t, EntryScaled, res.Entries["a"].Status)

	b := res.Entries["b"]
	assert.Equal(t, EntryFailed, b.Status)
	assert.True(t, b.Scaled.ScalingFailed)
	assert.Equal(t, 10.0, b.Scaled.Serves)
}

func TestScaleMenuEveryoneExcluded(t *testing.T) {
	policy := &recordingPolicy{targets: map[string]float64{}}
	m := newMenuScaler(policy)
	event := common.Event{ID: "evt_small", GuestCount: 1}

	recipes := []common.Recipe{{ID: "pb", Name: "PB", Serves: 4, Tags: []string{"nuts"}}}
	allergies := []common.AllergyRecord{{PersonName: "Alex", Tags: []string{"nuts"}}}

	res, err := m.ScaleMenu(context.Background(), event, recipes, allergies)
	require.NoError(t, err)
	entry := res.Entries["pb"]
	assert.Equal(t, EntryExcluded, entry.Status)
	assert.Equal(t, 0, entry.TargetServings)
	assert.Contains(t, entry.Warning, "1 of 1 people excluded")
	assert.Empty(t, policy.targets)
}

// cancelAfterPolicy 縮放第一道食譜後取消整個操作
type cancelAfterPolicy struct {
	cancel context.CancelFunc
	calls  int
}

func (p *cancelAfterPolicy) Name() string { return "cancel-after" }

func (p *cancelAfterPolicy) Scale(ctx context.Context, req Request) (*Result, error) {
	p.calls++
	p.cancel()
	return &Result{Ingredients: []string{"scaled " + req.Recipe.Name}}, nil
}

func TestScaleMenuKeepsPartialResultWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	policy := &cancelAfterPolicy{cancel: cancel}
	m := newMenuScaler(policy)

	recipes := []common.Recipe{
		{ID: "a", Name: "A", Serves: 10},
		{ID: "b", Name: "B", Serves: 10},
		{ID: "c", Name: "C", Serves: 10},
	}
	res, err := m.ScaleMenu(ctx, gala, recipes, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, policy.calls)
	assert.Equal(t, []string{"a", "b", "c"}, res.Order)
	assert.Equal(t, EntryScaled, res.Entries["a"].Status)
	assert.Equal(t, []string{"b", "c"}, res.Failed)

	b := res.Entries["b"]
	assert.Equal(t, EntryFailed, b.Status)
	assert.Contains(t, b.Error, "context canceled")
	require.NotNil(t, b.Recipe)
	assert.Equal(t, 10.0, b.Recipe.Serves)
}
