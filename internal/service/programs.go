package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"auber_controller/internal/program"
	"auber_controller/internal/repository"

	"gopkg.in/yaml.v3"
)

var (
	ErrProgramNotFound = errors.New("program not found")
	ErrReservedName    = fmt.Errorf("%w: %q is reserved for programs entered by hand", program.ErrInvalidProgram, program.CustomName)
)

// programFile is the YAML document exchanged by Import and Export.
type programFile struct {
	Programs []program.Record `yaml:"programs"`
}

type ProgramService struct {
	repo   repository.ProgramRepo
	bounds program.Bounds
}

func NewProgramService(repo repository.ProgramRepo, bounds program.Bounds) *ProgramService {
	return &ProgramService{repo: repo, bounds: bounds}
}

func (s *ProgramService) List(ctx context.Context) ([]program.Record, error) {
	return s.repo.List(ctx)
}

func (s *ProgramService) Get(ctx context.Context, name string) (program.Record, error) {
	rec, err := s.repo.Get(ctx, name)
	if err != nil {
		return program.Record{}, err
	}
	if rec == nil {
		return program.Record{}, fmt.Errorf("%w: %q", ErrProgramNotFound, strings.TrimSpace(name))
	}
	return *rec, nil
}

// Save validates the record against the instrument bounds and stores it in canonical
// ten-slot form, replacing any program with the same name.
func (s *ProgramService) Save(ctx context.Context, rec program.Record) error {
	p, err := s.parse(rec)
	if err != nil {
		return err
	}
	return s.repo.Save(ctx, program.RecordOf(p.Name(), p.Steps()))
}

func (s *ProgramService) Delete(ctx context.Context, name string) error {
	ok, err := s.repo.Delete(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrProgramNotFound, strings.TrimSpace(name))
	}
	return nil
}

// Load returns a runnable program with its cursor at the first step.
func (s *ProgramService) Load(ctx context.Context, name string) (*program.Program, error) {
	rec, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return program.FromRecord(rec, s.bounds)
}

// SeedPresets stores the built-in programs that are not in the library yet.
func (s *ProgramService) SeedPresets(ctx context.Context) (int, error) {
	n := 0
	for _, rec := range program.Presets() {
		existing, err := s.repo.Get(ctx, rec.Name)
		if err != nil {
			return n, err
		}
		if existing != nil {
			continue
		}
		if err := s.Save(ctx, rec); err != nil {
			return n, fmt.Errorf("seed %q: %w", rec.Name, err)
		}
		n++
	}
	return n, nil
}

// Import reads a YAML program file. Every program is validated before any is stored.
func (s *ProgramService) Import(ctx context.Context, r io.Reader) (int, error) {
	var f programFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: decode program file: %v", program.ErrInvalidProgram, err)
	}

	for _, rec := range f.Programs {
		if _, err := s.parse(rec); err != nil {
			return 0, err
		}
	}
	for i, rec := range f.Programs {
		if err := s.Save(ctx, rec); err != nil {
			return i, err
		}
	}
	return len(f.Programs), nil
}

// Export writes the named programs, or the whole library when names is empty, as YAML.
func (s *ProgramService) Export(ctx context.Context, w io.Writer, names ...string) error {
	var recs []program.Record
	if len(names) == 0 {
		all, err := s.repo.List(ctx)
		if err != nil {
			return err
		}
		recs = all
	} else {
		for _, name := range names {
			rec, err := s.Get(ctx, name)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
	}

	f := programFile{Programs: make([]program.Record, 0, len(recs))}
	for _, rec := range recs {
		f.Programs = append(f.Programs, compact(rec))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}

func (s *ProgramService) parse(rec program.Record) (*program.Program, error) {
	if strings.EqualFold(strings.TrimSpace(rec.Name), program.CustomName) {
		return nil, ErrReservedName
	}
	return program.FromRecord(rec, s.bounds)
}

// compact drops the unused slots after the last step.
func compact(rec program.Record) program.Record {
	out := program.Record{Name: rec.Name, Slots: make([]program.Slot, 0, len(rec.Slots))}
	for _, sl := range rec.Slots {
		if sl.Empty() {
			break
		}
		out.Slots = append(out.Slots, sl)
	}
	return out
}
