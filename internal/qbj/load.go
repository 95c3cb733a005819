package qbj

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/pable/go-qb-metrics/internal/model"
)

// Loaded is the outcome of loading one match file. Err is set when the
// match or its packet could not be loaded; the other fields are then
// partially filled.
type Loaded struct {
	Path       string
	PacketPath string
	Match      *model.MatchRecord
	Bank       *model.QuestionBank
	Err        error
}

// Loader reads match files and their packets. Packets shared by several
// matches are decoded once.
type Loader struct {
	PacketDirs []string
	Workers    int

	group   singleflight.Group
	mu      sync.Mutex
	packets map[string]*model.QuestionBank
}

// NewLoader returns a loader searching dirs for packets.
func NewLoader(dirs []string, workers int) *Loader {
	return &Loader{
		PacketDirs: dirs,
		Workers:    workers,
		packets:    make(map[string]*model.QuestionBank),
	}
}

// Load reads one match and its packet.
func (l *Loader) Load(path string) Loaded {
	res := Loaded{Path: path}
	m, err := ReadMatch(path)
	if err != nil {
		res.Err = err
		return res
	}
	res.Match = m

	pp, err := LocatePacket(path, m.Packet, l.PacketDirs)
	if err != nil {
		res.Err = err
		return res
	}
	res.PacketPath = pp

	bank, err := l.packet(pp)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", pp, err)
		return res
	}
	res.Bank = bank
	return res
}

func (l *Loader) packet(path string) (*model.QuestionBank, error) {
	l.mu.Lock()
	if b, ok := l.packets[path]; ok {
		l.mu.Unlock()
		return b, nil
	}
	l.mu.Unlock()

	v, err, _ := l.group.Do(path, func() (any, error) {
		l.mu.Lock()
		cached, ok := l.packets[path]
		l.mu.Unlock()
		if ok {
			return cached, nil
		}
		b, err := ReadPacket(path)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.packets[path] = b
		l.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.QuestionBank), nil
}

// LoadAll loads every path, up to Workers at a time. Results are in input
// order; per-file failures are reported in Loaded.Err. The returned error
// is non-nil only when ctx is cancelled.
func (l *Loader) LoadAll(ctx context.Context, paths []string) ([]Loaded, error) {
	out := make([]Loaded, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	workers := l.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = l.Load(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}
	return out, nil
}
