package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"auber_controller/internal/program"

	"github.com/stretchr/testify/require"
)

func anneal() program.Record {
	return program.Record{Name: "Anneal", Slots: []program.Slot{
		{Operation: "Ramp", TargetC: 300, DurationHours: 2},
		{Operation: "Soak", TargetC: 300, DurationHours: 1},
	}}
}

func TestProgramService_SaveGetLoad(t *testing.T) {
	ctx := context.Background()
	repo := newMemProgramRepo()
	svc := NewProgramService(repo, program.DefaultBounds())

	require.NoError(t, svc.Save(ctx, anneal()))
	require.Len(t, repo.recs["Anneal"].Slots, program.MaxSteps, "stored in ten-slot form")

	rec, err := svc.Get(ctx, "Anneal")
	require.NoError(t, err)
	require.Equal(t, "Ramp", rec.Slots[0].Operation)

	p, err := svc.Load(ctx, "Anneal")
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())
	require.Equal(t, 0, p.Index())
	require.Equal(t, 3*3600.0, p.TotalDuration())
}

func TestProgramService_SaveRejects(t *testing.T) {
	ctx := context.Background()
	repo := newMemProgramRepo()
	svc := NewProgramService(repo, program.DefaultBounds())

	cases := map[string]program.Record{
		"no steps":        {Name: "Empty"},
		"empty name":      {Name: " ", Slots: anneal().Slots},
		"zero duration":   {Name: "Z", Slots: []program.Slot{{Operation: "Soak", TargetC: 100}}},
		"unknown op":      {Name: "U", Slots: []program.Slot{{Operation: "Hold", TargetC: 100, DurationHours: 1}}},
		"above ceiling":   {Name: "Hot", Slots: []program.Slot{{Operation: "Ramp", TargetC: 2000, DurationHours: 1}}},
		"reserved custom": {Name: "custom", Slots: anneal().Slots},
	}
	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			err := svc.Save(ctx, rec)
			require.ErrorIs(t, err, program.ErrInvalidProgram)
		})
	}
	require.Empty(t, repo.recs)
	require.ErrorIs(t, svc.Save(ctx, program.Record{Name: "Custom", Slots: anneal().Slots}), ErrReservedName)
}

func TestProgramService_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewProgramService(newMemProgramRepo(), program.DefaultBounds())

	_, err := svc.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrProgramNotFound)
	_, err = svc.Load(ctx, "missing")
	require.ErrorIs(t, err, ErrProgramNotFound)
	require.ErrorIs(t, svc.Delete(ctx, "missing"), ErrProgramNotFound)
}

func TestProgramService_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newMemProgramRepo()
	svc := NewProgramService(repo, program.DefaultBounds())

	require.NoError(t, svc.Save(ctx, anneal()))
	require.NoError(t, svc.Delete(ctx, "Anneal"))
	require.Empty(t, repo.recs)
}

func TestProgramService_RepoErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	repo := newMemProgramRepo()
	repo.err = boom
	svc := NewProgramService(repo, program.DefaultBounds())

	_, err := svc.List(context.Background())
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, svc.Save(context.Background(), anneal()), boom)
}

func TestProgramService_SeedPresetsOnce(t *testing.T) {
	ctx := context.Background()
	repo := newMemProgramRepo()
	svc := NewProgramService(repo, program.DefaultBounds())

	n, err := svc.SeedPresets(ctx)
	require.NoError(t, err)
	require.Equal(t, len(program.Presets()), n)

	// an edited preset is not overwritten by a later seed
	edited := program.Record{Name: "GaAs", Slots: []program.Slot{{Operation: "Soak", TargetC: 40, DurationHours: 1}}}
	require.NoError(t, svc.Save(ctx, edited))

	n, err = svc.SeedPresets(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, 40.0, repo.recs["GaAs"].Slots[0].TargetC)
}

func TestProgramService_ImportExport(t *testing.T) {
	ctx := context.Background()
	src := NewProgramService(newMemProgramRepo(), program.DefaultBounds())

	doc := `
programs:
  - name: Anneal
    slots:
      - {operation: Ramp, target_c: 300, duration_hours: 2}
      - {operation: Soak, target_c: 300, duration_hours: 1}
  - name: Quench
    slots:
      - {operation: Ramp, target_c: 25, duration_hours: 0.5}
`
	n, err := src.Import(ctx, strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	var buf bytes.Buffer
	require.NoError(t, src.Export(ctx, &buf, "Anneal"))
	out := buf.String()
	require.Contains(t, out, "name: Anneal")
	require.Equal(t, 2, strings.Count(out, "operation:"), "unused slots are not exported")
	require.NotContains(t, out, "Quench")

	dst := NewProgramService(newMemProgramRepo(), program.DefaultBounds())
	n, err = dst.Import(ctx, &buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	p, err := dst.Load(ctx, "Anneal")
	require.NoError(t, err)
	require.Equal(t, mustSteps(t, src, "Anneal"), p.Steps())
}

func TestProgramService_ImportIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo := newMemProgramRepo()
	svc := NewProgramService(repo, program.DefaultBounds())

	doc := `
programs:
  - name: Good
    slots:
      - {operation: Soak, target_c: 100, duration_hours: 1}
  - name: Bad
    slots:
      - {operation: Soak, target_c: 100, duration_hours: -1}
`
	n, err := svc.Import(ctx, strings.NewReader(doc))
	require.ErrorIs(t, err, program.ErrInvalidProgram)
	require.Zero(t, n)
	require.Empty(t, repo.recs)

	_, err = svc.Import(ctx, strings.NewReader("programs:\n  - nam: typo\n"))
	require.ErrorIs(t, err, program.ErrInvalidProgram)

	n, err = svc.Import(ctx, strings.NewReader(""))
	require.NoError(t, err)
	require.Zero(t, n)
}

func mustSteps(t *testing.T, s *ProgramService, name string) []program.Step {
	t.Helper()
	p, err := s.Load(context.Background(), name)
	require.NoError(t, err)
	return p.Steps()
}
