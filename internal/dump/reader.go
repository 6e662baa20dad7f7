package dump

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dbsmedya/catalogsync/internal/logger"
)

// Handler receives every tuple of a table of interest in file order.
// line is the 1-based line number the tuple was read from.
type Handler func(table string, line int, values []Value)

// Progress is a periodic snapshot of how far a pass has read.
type Progress struct {
	Lines   int64
	Bytes   int64
	Elapsed time.Duration
}

// Stats summarizes one pass over a dump.
type Stats struct {
	Lines       int64
	Bytes       int64
	Statements  int64
	Tuples      int64
	TableTuples map[string]int64
	Duration    time.Duration
}

// Options configure a Reader.
type Options struct {
	// MaxLineBytes bounds a single line; longer lines fail the pass.
	MaxLineBytes int
	// ProgressInterval is the number of lines between progress reports. Zero disables them.
	ProgressInterval int
	// OnProgress, when set, receives each progress report in addition to the log line.
	OnProgress func(Progress)
}

const (
	initialBufferSize   = 1024 * 1024
	defaultMaxLineBytes = 64 * 1024 * 1024
	cancelCheckInterval = 4096
)

var (
	insertPrefix  = []byte("INSERT INTO")
	valuesKeyword = []byte("VALUES")
)

// Reader streams a dump line by line and forwards tuples belonging to a
// fixed set of tables. It never holds more than one line in memory.
type Reader struct {
	tables map[string]struct{}
	opts   Options
	logger *logger.Logger
}

// NewReader creates a Reader that forwards tuples of the named tables.
func NewReader(opts Options, log *logger.Logger, tables ...string) *Reader {
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = defaultMaxLineBytes
	}
	if log == nil {
		log = logger.NewDefault()
	}
	set := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		set[t] = struct{}{}
	}
	return &Reader{tables: set, opts: opts, logger: log}
}

// ReadFile opens path and runs one full pass over it.
func (r *Reader) ReadFile(ctx context.Context, path string, handle Handler) (*Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump: %w", err)
	}
	defer f.Close()

	r.logger.Infow("Reading dump", "path", path)
	return r.Read(ctx, f, handle)
}

// Read runs one full pass over src.
func (r *Reader) Read(ctx context.Context, src io.Reader, handle Handler) (*Stats, error) {
	start := time.Now()
	counter := &countingReader{r: src}

	scanner := bufio.NewScanner(counter)
	bufSize := initialBufferSize
	if bufSize > r.opts.MaxLineBytes {
		bufSize = r.opts.MaxLineBytes
	}
	scanner.Buffer(make([]byte, bufSize), r.opts.MaxLineBytes)

	stats := &Stats{TableTuples: make(map[string]int64)}
	var state tableState

	for scanner.Scan() {
		stats.Lines++

		if stats.Lines%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return stats, fmt.Errorf("dump pass interrupted at line %d: %w", stats.Lines, err)
			}
		}

		r.processLine(&state, scanner.Bytes(), int(stats.Lines), stats, handle)

		if r.opts.ProgressInterval > 0 && stats.Lines%int64(r.opts.ProgressInterval) == 0 {
			r.reportProgress(Progress{Lines: stats.Lines, Bytes: counter.n, Elapsed: time.Since(start)})
		}
	}

	stats.Bytes = counter.n
	stats.Duration = time.Since(start)

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return stats, fmt.Errorf("line %d exceeds %s: %w",
				stats.Lines+1, humanize.IBytes(uint64(r.opts.MaxLineBytes)), err)
		}
		return stats, fmt.Errorf("failed to read dump: %w", err)
	}

	r.logger.Infow("Dump pass complete",
		"lines", humanize.Comma(stats.Lines),
		"bytes", humanize.Bytes(uint64(stats.Bytes)),
		"statements", stats.Statements,
		"tuples", stats.Tuples,
		"duration", stats.Duration,
	)
	return stats, nil
}

// tableState is the only state carried from one line to the next: the
// table of interest targeted by the open INSERT statement, if any.
type tableState struct {
	current string
}

func (r *Reader) processLine(state *tableState, line []byte, lineNo int, stats *Stats, handle Handler) {
	line = bytes.TrimLeft(line, " \t")
	if len(line) == 0 {
		return
	}

	var values []byte
	switch {
	case bytes.HasPrefix(line, insertPrefix):
		table, rest := parseInsert(line[len(insertPrefix):])
		state.current = ""
		if _, ok := r.tables[table]; ok {
			state.current = table
			stats.Statements++
			values = rest
		}
	case line[0] == '(' && state.current != "":
		values = line
	default:
		if state.current != "" && endsStatement(line) {
			state.current = ""
		}
		return
	}

	if state.current == "" {
		return
	}

	table := state.current
	if endsStatement(line) {
		state.current = ""
	}

	clause := cleanClause(values)
	if len(clause) == 0 {
		return
	}
	for _, raw := range SplitTuples(string(clause)) {
		stats.Tuples++
		stats.TableTuples[table]++
		handle(table, lineNo, ParseTuple(raw))
	}
}

// parseInsert reads the table identifier after INSERT INTO and returns it
// together with whatever follows the VALUES keyword on the same line.
func parseInsert(rest []byte) (string, []byte) {
	rest = bytes.TrimLeft(rest, " \t")
	var name []byte
	if len(rest) > 0 && rest[0] == '`' {
		end := bytes.IndexByte(rest[1:], '`')
		if end < 0 {
			return "", nil
		}
		name = rest[1 : end+1]
		rest = rest[end+2:]
	} else {
		end := bytes.IndexAny(rest, " \t(")
		if end < 0 {
			return string(rest), nil
		}
		name = rest[:end]
		rest = rest[end:]
	}

	idx := bytes.Index(rest, valuesKeyword)
	if idx < 0 {
		idx = bytes.Index(rest, bytes.ToLower(valuesKeyword))
	}
	if idx < 0 {
		return string(name), nil
	}
	return string(name), rest[idx+len(valuesKeyword):]
}

// cleanClause strips blanks and the trailing ';' or ',' that separate
// statements and multi-line tuple groups.
func cleanClause(b []byte) []byte {
	b = bytes.TrimSpace(b)
	b = bytes.TrimSuffix(b, []byte(";"))
	b = bytes.TrimSuffix(b, []byte(","))
	return bytes.TrimSpace(b)
}

func endsStatement(line []byte) bool {
	return bytes.HasSuffix(bytes.TrimRight(line, " \t\r"), []byte(";"))
}

func (r *Reader) reportProgress(p Progress) {
	r.logger.Infow("Dump progress",
		"lines", humanize.Comma(p.Lines),
		"read", humanize.Bytes(uint64(p.Bytes)),
		"elapsed", p.Elapsed.Round(time.Second),
	)
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(p)
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
