package dump

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/catalogsync/internal/logger"
)

type collected struct {
	table  string
	line   int
	values []Value
}

func collect(t *testing.T, r *Reader, input string) ([]collected, *Stats) {
	t.Helper()
	var got []collected
	stats, err := r.Read(context.Background(), strings.NewReader(input), func(table string, line int, values []Value) {
		got = append(got, collected{table: table, line: line, values: values})
	})
	require.NoError(t, err)
	return got, stats
}

const sampleDump = "-- MySQL dump 10.13\n" +
	"DROP TABLE IF EXISTS `ps_category_lang`;\n" +
	"LOCK TABLES `ps_category_lang` WRITE;\n" +
	"INSERT INTO `ps_category_lang` VALUES (5,1,1,'Motors','motors'),(5,1,2,'Moteurs','moteurs');\n" +
	"UNLOCK TABLES;\n" +
	"INSERT INTO `ps_orders` VALUES (1,'secret'),(2,'other');\n" +
	"(3,'orphan line after uninteresting insert');\n" +
	"INSERT INTO `ps_product` VALUES\n" +
	"(100,1,0,5,'x'),\n" +
	"(101,1,0,0,'y');\n" +
	"(999,'stray tuple after terminator');\n"

func TestReaderForwardsOnlyTablesOfInterest(t *testing.T) {
	r := NewReader(Options{}, logger.NewNop(), "ps_category_lang", "ps_product")
	got, stats := collect(t, r, sampleDump)

	require.Len(t, got, 4)

	assert.Equal(t, "ps_category_lang", got[0].table)
	assert.Equal(t, 4, got[0].line)
	assert.Equal(t, "Motors", got[0].values[3].AsString())
	assert.Equal(t, "Moteurs", got[1].values[3].AsString())

	assert.Equal(t, "ps_product", got[2].table)
	assert.Equal(t, 9, got[2].line)
	assert.Equal(t, "ps_product", got[3].table)
	assert.Equal(t, 10, got[3].line)
	def, ok := got[3].values[3].AsInt64()
	assert.True(t, ok)
	assert.Equal(t, int64(0), def)

	assert.Equal(t, int64(11), stats.Lines)
	assert.Equal(t, int64(len(sampleDump)), stats.Bytes)
	assert.Equal(t, int64(2), stats.Statements)
	assert.Equal(t, int64(4), stats.Tuples)
	assert.Equal(t, int64(2), stats.TableTuples["ps_category_lang"])
	assert.Equal(t, int64(2), stats.TableTuples["ps_product"])
}

func TestReaderUninterestingInsertClearsState(t *testing.T) {
	input := "INSERT INTO `ps_product` VALUES\n" +
		"(1,1,0,2,'a'),\n" +
		"INSERT INTO `ps_orders` VALUES\n" +
		"(2,1,0,2,'b');\n"

	r := NewReader(Options{}, logger.NewNop(), "ps_product")
	got, _ := collect(t, r, input)

	require.Len(t, got, 1)
	id, _ := got[0].values[0].AsInt64()
	assert.Equal(t, int64(1), id)
}

func TestReaderColumnListAndLowercaseValues(t *testing.T) {
	input := "INSERT INTO ps_category_product (`id_category`,`id_product`,`position`) values (41,109,0),(41,110,1);\n"

	r := NewReader(Options{}, logger.NewNop(), "ps_category_product")
	got, _ := collect(t, r, input)

	require.Len(t, got, 2)
	assert.Equal(t, "ps_category_product", got[0].table)
}

func TestReaderHandlesCRLF(t *testing.T) {
	input := "INSERT INTO `ps_product` VALUES (1,1,0,2,'a');\r\n(2,1,0,2,'b');\r\n"

	r := NewReader(Options{}, logger.NewNop(), "ps_product")
	got, _ := collect(t, r, input)

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].values[4].AsString())
}

func TestReaderProgress(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString("-- filler line\n")
	}

	var reports []Progress
	r := NewReader(Options{
		ProgressInterval: 3,
		OnProgress:       func(p Progress) { reports = append(reports, p) },
	}, logger.NewNop())

	_, stats := collect(t, r, b.String())

	require.Len(t, reports, 3)
	assert.Equal(t, int64(3), reports[0].Lines)
	assert.Equal(t, int64(9), reports[2].Lines)
	assert.Equal(t, int64(10), stats.Lines)
}

func TestReaderLineTooLong(t *testing.T) {
	input := "INSERT INTO `ps_product` VALUES (" + strings.Repeat("9", 4096) + ");\n"

	r := NewReader(Options{MaxLineBytes: 1024}, logger.NewNop(), "ps_product")
	_, err := r.Read(context.Background(), strings.NewReader(input), func(string, int, []Value) {})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1 exceeds")
}

func TestReaderCancelled(t *testing.T) {
	var b strings.Builder
	for i := 0; i < cancelCheckInterval+10; i++ {
		b.WriteString("x\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReader(Options{}, logger.NewNop())
	_, err := r.Read(ctx, strings.NewReader(b.String()), func(string, int, []Value) {})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.sql")
	require.NoError(t, os.WriteFile(path, []byte(sampleDump), 0644))

	r := NewReader(Options{}, logger.NewNop(), "ps_product")
	count := 0
	stats, err := r.ReadFile(context.Background(), path, func(string, int, []Value) { count++ })
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, int64(2), stats.Tuples)

	_, err = r.ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing.sql"), func(string, int, []Value) {})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
