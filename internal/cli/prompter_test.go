package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ledger/internal/model"
)

func TestPrompter_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"maybe\n", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out)
			got, err := p.Confirm(context.Background(), "Delete everything?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Delete everything?")
		})
	}

	_, err := NewPrompter(strings.NewReader(""), &bytes.Buffer{}).Confirm(context.Background(), "?")
	assert.ErrorIs(t, err, ErrInputTerminated)
}

func TestPrompter_ChooseDeleteStrategy(t *testing.T) {
	others := []model.Category{{Name: "Dining"}, {Name: "Others"}}

	tests := []struct {
		name       string
		input      string
		others     []model.Category
		want       model.DeleteStrategy
		wantTarget string
	}{
		{name: "block", input: "b\n", others: others, want: model.StrategyBlock},
		{name: "cascade", input: "C\n", others: others, want: model.StrategyCascade},
		{name: "reassign picks a target", input: "r\n2\n", others: others, want: model.StrategyReassign, wantTarget: "Others"},
		{name: "invalid choices are retried", input: "x\nr\n9\n1\n", others: others, want: model.StrategyReassign, wantTarget: "Dining"},
		{name: "reassign hidden without targets", input: "r\nc\n", want: model.StrategyCascade},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out)
			strategy, target, err := p.ChooseDeleteStrategy(context.Background(), "Food", 3, tt.others)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strategy)
			assert.Equal(t, tt.wantTarget, target)
			assert.Contains(t, out.String(), "3 linked transaction(s)")
		})
	}

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := NewPrompter(strings.NewReader("b\n"), &bytes.Buffer{})
		_, _, err := p.ChooseDeleteStrategy(ctx, "Food", 1, nil)
		assert.ErrorIs(t, err, ErrInputCancelled)
	})
}

func TestNewProgressBar(t *testing.T) {
	var out bytes.Buffer
	bar := NewProgressBar(&out, 2, "Importing")
	require.NoError(t, bar.Add(1))
	require.NoError(t, bar.Add(1))
	assert.Contains(t, out.String(), "Importing")
}
