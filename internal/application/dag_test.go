package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

// mockExecutable is a test implementation of Executable
type mockExecutable struct {
	id          string
	executeFunc func(ctx context.Context, state domain.State) (domain.State, error)
	executed    bool
	mu          sync.Mutex
}

func (m *mockExecutable) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	m.mu.Lock()
	m.executed = true
	m.mu.Unlock()

	if m.executeFunc != nil {
		return m.executeFunc(ctx, state)
	}
	return state, nil
}

func (m *mockExecutable) ID() string { return m.id }

func (m *mockExecutable) wasExecuted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executed
}

// writer returns an executable that stores value under key.
func writer(id, key string, value any) *mockExecutable {
	return &mockExecutable{
		id: id,
		executeFunc: func(ctx context.Context, state domain.State) (domain.State, error) {
			return state.WithRaw(key, value), nil
		},
	}
}

func TestPipeline_Execute(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) (ports.Pipeline, []*mockExecutable)
		errMsg  string
		errIs   error
		verify  func(t *testing.T, state domain.State, mocks []*mockExecutable)
		ctxFunc func() context.Context
	}{
		{
			name: "executes units in sequence",
			setup: func(t *testing.T) (ports.Pipeline, []*mockExecutable) {
				pipeline := NewPipeline("core")
				mocks := make([]*mockExecutable, 3)
				for i := range mocks {
					prev := fmt.Sprintf("step%d", i-1)
					key := fmt.Sprintf("step%d", i)
					mocks[i] = &mockExecutable{
						id: key,
						executeFunc: func(ctx context.Context, state domain.State) (domain.State, error) {
							if i > 0 {
								if _, ok := state.GetRaw(prev); !ok {
									return state, fmt.Errorf("%s ran before %s", key, prev)
								}
							}
							return state.WithRaw(key, i), nil
						},
					}
					require.NoError(t, pipeline.Add(mocks[i]))
				}
				return pipeline, mocks
			},
			verify: func(t *testing.T, state domain.State, mocks []*mockExecutable) {
				for _, m := range mocks {
					assert.True(t, m.wasExecuted())
				}
				assert.Equal(t, []string{"step0", "step1", "step2"}, state.Keys())
			},
		},
		{
			name: "stops on first error and names the stage",
			setup: func(t *testing.T) (ports.Pipeline, []*mockExecutable) {
				pipeline := NewPipeline("core")
				mocks := []*mockExecutable{
					{id: "input"},
					{id: "normalize", executeFunc: func(ctx context.Context, state domain.State) (domain.State, error) {
						return state, domain.NewDegenerateInputError(domain.DecisionMaker{Index: 1, Label: "D1"})
					}},
					{id: "combine"},
				}
				for _, m := range mocks {
					require.NoError(t, pipeline.Add(m))
				}
				return pipeline, mocks
			},
			errMsg: "pipeline core: stage normalize: degenerate input",
			errIs:  domain.ErrDegenerateInput,
			verify: func(t *testing.T, state domain.State, mocks []*mockExecutable) {
				assert.True(t, mocks[0].wasExecuted())
				assert.True(t, mocks[1].wasExecuted())
				assert.False(t, mocks[2].wasExecuted(), "stages after a failure must not run")
			},
		},
		{
			name: "respects cancellation",
			setup: func(t *testing.T) (ports.Pipeline, []*mockExecutable) {
				pipeline := NewPipeline("core")
				m := &mockExecutable{id: "input"}
				require.NoError(t, pipeline.Add(m))
				return pipeline, []*mockExecutable{m}
			},
			ctxFunc: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			errIs: context.Canceled,
			verify: func(t *testing.T, state domain.State, mocks []*mockExecutable) {
				assert.False(t, mocks[0].wasExecuted())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline, mocks := tt.setup(t)
			ctx := context.Background()
			if tt.ctxFunc != nil {
				ctx = tt.ctxFunc()
			}

			state, err := pipeline.Execute(ctx, domain.NewState())
			if tt.errIs != nil || tt.errMsg != "" {
				require.Error(t, err)
				if tt.errIs != nil {
					assert.ErrorIs(t, err, tt.errIs)
				}
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				require.NoError(t, err)
			}
			tt.verify(t, state, mocks)
		})
	}
}

func TestPipeline_Add(t *testing.T) {
	pipeline := NewPipeline("core")

	require.NoError(t, pipeline.Add(&mockExecutable{id: "input"}))
	assert.ErrorContains(t, pipeline.Add(&mockExecutable{id: "input"}), "already exists")
	assert.ErrorContains(t, pipeline.Add(nil), "nil executable")
	assert.Len(t, pipeline.Executables(), 1)
	assert.Equal(t, "core", pipeline.ID())
}

func TestLayer_Execute(t *testing.T) {
	t.Run("merges the keys each branch added", func(t *testing.T) {
		layer := NewLayer("parallel")
		require.NoError(t, layer.Add(writer("a", "combined", domain.Vector{0.5, 0.5})))
		require.NoError(t, layer.Add(writer("b", "consensus.extra", 1)))

		base := domain.With(domain.NewState(), domain.KeyNeutral, domain.Vector{0.5, 0.5})
		out, err := layer.Execute(context.Background(), base)
		require.NoError(t, err)

		assert.Equal(t, []string{"combined", "consensus.extra", "neutral"}, out.Keys())
		combined, ok := domain.Get(out, domain.KeyCombined)
		require.True(t, ok)
		assert.Equal(t, domain.Vector{0.5, 0.5}, combined)
	})

	t.Run("conflicting branches fail", func(t *testing.T) {
		layer := NewLayer("parallel")
		require.NoError(t, layer.Add(writer("a", "combined", 1)))
		require.NoError(t, layer.Add(writer("b", "combined", 2)))

		_, err := layer.Execute(context.Background(), domain.NewState())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "branches 1 and 2 both wrote key combined")
	})

	t.Run("branch error is reported with its id", func(t *testing.T) {
		layer := NewLayer("parallel")
		layer.SetConcurrencyLimit(1)
		require.NoError(t, layer.Add(&mockExecutable{id: "ok"}))
		require.NoError(t, layer.Add(&mockExecutable{
			id: "bad",
			executeFunc: func(ctx context.Context, state domain.State) (domain.State, error) {
				return state, errors.New("boom")
			},
		}))

		_, err := layer.Execute(context.Background(), domain.NewState())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "layer parallel: stage bad: boom")

		var stageErr *ports.StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, "bad", stageErr.Stage)
	})

	t.Run("overwriting an input key fails", func(t *testing.T) {
		base := domain.NewState().WithRaw("combined", 1)
		layer := NewLayer("parallel")
		require.NoError(t, layer.Add(writer("a", "neutral", 0.5)))
		require.NoError(t, layer.Add(writer("b", "combined", 2)))

		_, err := layer.Execute(context.Background(), base)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "branch 2 overwrote key combined")
	})

	t.Run("rewriting an input key with the same value is allowed", func(t *testing.T) {
		base := domain.NewState().WithRaw("combined", 1)
		layer := NewLayer("parallel")
		require.NoError(t, layer.Add(writer("a", "combined", 1)))
		require.NoError(t, layer.Add(writer("b", "neutral", 0.5)))

		out, err := layer.Execute(context.Background(), base)
		require.NoError(t, err)
		assert.Equal(t, []string{"combined", "neutral"}, out.Keys())
	})

	t.Run("empty layer passes state through", func(t *testing.T) {
		base := domain.NewState().WithRaw("k", 1)
		out, err := NewLayer("empty").Execute(context.Background(), base)
		require.NoError(t, err)
		assert.Equal(t, base.Keys(), out.Keys())
	})

	t.Run("custom merge strategy", func(t *testing.T) {
		layer := NewLayer("parallel")
		require.NoError(t, layer.Add(writer("a", "x", 1)))
		layer.SetMergeStrategy(firstStateMerge{})

		out, err := layer.Execute(context.Background(), domain.NewState())
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, out.Keys())
	})
}

type firstStateMerge struct{}

func (firstStateMerge) Merge(base domain.State, states []domain.State) (domain.State, error) {
	return states[0], nil
}

func TestGraph_AddEdge(t *testing.T) {
	g := NewGraph("g")
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddNode(&mockExecutable{id: id}))
	}

	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))

	assert.ErrorContains(t, g.AddEdge("a", "b"), "already exists")
	assert.ErrorContains(t, g.AddEdge("a", "missing"), "does not exist")
	assert.ErrorContains(t, g.AddEdge("c", "a"), "would create a cycle")
	assert.False(t, g.HasCycle(), "a rejected edge must be rolled back")
	assert.ErrorContains(t, g.AddNode(&mockExecutable{id: "a"}), "already exists")
}

func TestGraph_TopologicalSort(t *testing.T) {
	g := NewGraph("g")
	for _, id := range []string{"consensus", "input", "combine"} {
		require.NoError(t, g.AddNode(&mockExecutable{id: id}))
	}
	require.NoError(t, g.AddEdge("input", "combine"))
	require.NoError(t, g.AddEdge("input", "consensus"))

	order, err := g.TopologicalSort()
	require.NoError(t, err)

	ids := make([]string, len(order))
	for i, e := range order {
		ids[i] = e.ID()
	}
	assert.Equal(t, []string{"input", "combine", "consensus"}, ids)

	again, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, order, again, "sorting must be deterministic")
}

func TestGraph_Execute(t *testing.T) {
	g := NewGraph("default")
	require.NoError(t, g.AddNode(writer("second", "second", 2)))
	require.NoError(t, g.AddNode(writer("first", "first", 1)))
	require.NoError(t, g.AddEdge("first", "second"))

	out, err := g.Execute(context.Background(), domain.NewState())
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, out.Keys())
	assert.Equal(t, "default", g.ID())

	node, ok := g.GetNode("first")
	require.True(t, ok)
	assert.Equal(t, "first", node.ID())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Execute(ctx, domain.NewState())
	assert.ErrorIs(t, err, context.Canceled)
}
