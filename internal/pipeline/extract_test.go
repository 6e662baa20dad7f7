package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/catalogsync/internal/config"
	"github.com/dbsmedya/catalogsync/internal/logger"
	"github.com/dbsmedya/catalogsync/internal/reconcile"
	"github.com/dbsmedya/catalogsync/internal/snapshot"
	"github.com/dbsmedya/catalogsync/internal/target"
)

func writeDump(t *testing.T, content string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legacy.sql")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := config.DefaultConfig()
	cfg.Dump.Path = path
	cfg.Snapshot.Path = filepath.Join(t.TempDir(), "graph.json")
	return cfg
}

func productLang(id, locale int, name string) string {
	return "(" + strconv.Itoa(id) + ",1," + strconv.Itoa(locale) + ",'desc','short','slug','','','','" + name + "',NULL)"
}

func TestExtractDefaultCategory(t *testing.T) {
	cfg := writeDump(t,
		"INSERT INTO `ps_category_lang` VALUES (5,1,1,'Motors','motors');\n"+
			"INSERT INTO `ps_product_lang` VALUES "+productLang(100, 1, "Piston")+";\n"+
			"INSERT INTO `ps_product` VALUES (100,1,0,5,1);\n")

	res, err := Extract(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []string{"Motors"}, res.Graph.Categories())
	assert.Equal(t, []string{"Piston"}, res.Graph.Products("Motors"))
	assert.Equal(t, 1, res.Build.Pairs)
}

func TestExtractPreferredLocaleInsertedSecond(t *testing.T) {
	cfg := writeDump(t,
		"INSERT INTO `ps_category_lang` VALUES (5,1,2,'Moteurs','moteurs'),(5,1,1,'Motors','motors');\n"+
			"INSERT INTO `ps_product_lang` VALUES "+productLang(100, 1, "Piston")+";\n"+
			"INSERT INTO `ps_product` VALUES (100,1,0,5,1);\n")

	res, err := Extract(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)

	name, ok := res.Indices.Categories.Lookup(5)
	require.True(t, ok)
	assert.Equal(t, "Motors", name)
	assert.Equal(t, []string{"Motors"}, res.Graph.Categories())
}

func TestExtractJunctionOnly(t *testing.T) {
	cfg := writeDump(t,
		"INSERT INTO `ps_category_lang` VALUES (41,1,1,'Brakes','brakes');\n"+
			"INSERT INTO `ps_product_lang` VALUES\n"+
			productLang(109, 1, "Brake Pad")+";\n"+
			"INSERT INTO `ps_category_product` VALUES (41,109,0);\n")

	res, err := Extract(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []string{"Brake Pad"}, res.Graph.Products("Brakes"))
}

func TestExtractUnionOfDefaultAndJunction(t *testing.T) {
	cfg := writeDump(t,
		"INSERT INTO `ps_category_lang` VALUES (2,1,1,'Home','home'),(5,1,1,'Motors','m'),(8,1,1,'Spares','s');\n"+
			"INSERT INTO `ps_product_lang` VALUES "+productLang(100, 1, "Piston")+";\n"+
			"INSERT INTO `ps_product` VALUES (100,1,0,5,1);\n"+
			"INSERT INTO `ps_category_product` VALUES (8,100,0),(2,100,1),(8,999,2);\n")

	res, err := Extract(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []string{"Motors", "Spares"}, res.Graph.Categories())
	assert.True(t, res.Graph.Has("Motors", "Piston"))
	assert.True(t, res.Graph.Has("Spares", "Piston"))
	assert.Equal(t, 1, res.Build.ReservedCategories)
	assert.Equal(t, 1, res.Build.UnresolvedProducts)
}

func TestExtractMissingDump(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Dump.Path = filepath.Join(t.TempDir(), "missing.sql")

	_, err := Extract(context.Background(), cfg, logger.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractDumpIsDirectory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Dump.Path = t.TempDir()

	_, err := Extract(context.Background(), cfg, logger.NewNop())
	assert.Error(t, err)
}

func TestExtractToSnapshotThenSyncTwice(t *testing.T) {
	cfg := writeDump(t,
		"INSERT INTO `ps_category_lang` VALUES (5,1,1,'Motors','motors');\n"+
			"INSERT INTO `ps_product_lang` VALUES "+productLang(100, 1, "Piston")+","+productLang(101, 1, "Valve")+";\n"+
			"INSERT INTO `ps_product` VALUES (100,1,0,5,1),(101,1,0,5,1);\n")

	store := snapshot.NewFileStore(cfg.Snapshot.Path)
	_, err := ExtractToSnapshot(context.Background(), cfg, store, logger.NewNop())
	require.NoError(t, err)

	g, err := store.Load(context.Background())
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ts, err := target.New(db, cfg.TargetSchema, logger.NewNop())
	require.NoError(t, err)

	expectLoads := func(links *sqlmock.Rows) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM `categories`")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "motors"))
		mock.ExpectQuery(regexp.QuoteMeta("FROM `products`")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "reference"}).
				AddRow(10, "Piston", "").
				AddRow(11, "Valve", ""))
		mock.ExpectQuery(regexp.QuoteMeta("FROM `category_product`")).WillReturnRows(links)
	}

	opts := reconcile.Options{Matching: cfg.Matching, Processing: cfg.Processing}
	opts.Processing.Concurrency = 1

	expectLoads(sqlmock.NewRows([]string{"category_id", "product_id"}))
	insert := regexp.QuoteMeta("INSERT IGNORE INTO `category_product`")
	mock.ExpectExec(insert).WithArgs(int64(1), int64(10)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).WithArgs(int64(1), int64(11)).WillReturnResult(sqlmock.NewResult(0, 1))

	first, err := reconcile.New(ts, opts, logger.NewNop()).SyncGraph(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)

	expectLoads(sqlmock.NewRows([]string{"category_id", "product_id"}).AddRow(1, 10).AddRow(1, 11))

	second, err := reconcile.New(ts, opts, logger.NewNop()).SyncGraph(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.AlreadyPresent)
	assert.Equal(t, 0, second.Failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
