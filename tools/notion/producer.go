package notion

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/chatmodel"
	"github.com/effective-security/mcpchat/mcp/codec"
	"github.com/effective-security/mcpchat/pkg/metricskey"
	"github.com/effective-security/mcpchat/store"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/xlog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Messages returned when the producer chain yields nothing
const (
	MsgDatabaseNotFound = "⚠️ ‘프로젝트’ 데이터베이스를 찾지 못했습니다."
	MsgDatabaseNoID     = "⚠️ 데이터베이스 ID를 파싱하지 못했습니다."
	MsgNoProjects       = "⚠️ 조회된 프로젝트가 없습니다."
)

var _ tools.Injector = InjectProjects
var _ tools.DatasetOf = ProjectsOf

// ProjectsOf returns the projects list of a get_projects result
func ProjectsOf(result any) (store.Dataset, bool) {
	m, ok := result.(map[string]any)
	if !ok {
		return nil, false
	}
	// a missing or non-list member clears the cache
	list, _ := m[ResultProjects].([]any)
	return store.Dataset(list), true
}

// InjectProjects sets the analyze argument when the model omitted it,
// from the cache or by fetching the projects database.
func InjectProjects(ctx context.Context, inv tools.Invoker, cache store.DatasetCache, args string) (string, error) {
	if gjson.Get(args, ArgAnalyze).Exists() {
		return args, nil
	}

	projects, ok := cache.Get()
	if ok && len(projects) > 0 {
		metricskey.StatsCacheHits.IncrCounter(1, ToolAnalyzeProjects)
		logger.ContextKV(ctx, xlog.DEBUG, "status", "cache_hit", "projects", len(projects))
	} else {
		metricskey.StatsCacheMisses.IncrCounter(1, ToolAnalyzeProjects)

		var err error
		projects, err = FetchProjects(ctx, inv)
		if err != nil {
			return "", err
		}
		cache.Set(projects)
	}

	updated, err := sjson.Set(args, ArgAnalyze, []any(projects))
	if err != nil {
		return "", chatmodel.Mark(errors.Wrap(err, "failed to set analyze argument"), chatmodel.ErrDecode)
	}
	metricskey.StatsToolArgsInjected.IncrCounter(1, ToolAnalyzeProjects)
	return updated, nil
}

// FetchProjects runs search_databases for the projects database,
// then get_projects with the id of the first database found.
func FetchProjects(ctx context.Context, inv tools.Invoker) (store.Dataset, error) {
	found, err := inv.CallTool(ctx, ToolSearchDatabases, map[string]any{ArgQuery: ProjectsQuery})
	if err != nil {
		return nil, err
	}

	databases, err := databaseList(found)
	if err != nil {
		return nil, err
	}
	if len(databases) == 0 {
		return nil, chatmodel.NewMissingUpstreamData(MsgDatabaseNotFound)
	}

	id := databases[0].Get("id")
	if id.String() == "" {
		return nil, chatmodel.NewMissingUpstreamData(MsgDatabaseNoID)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "database_found",
		"database_id", id.String(),
		"databases", len(databases),
	)

	res, err := inv.CallTool(ctx, ToolGetProjects, map[string]any{ArgDatabaseID: id.String()})
	if err != nil {
		return nil, err
	}
	projects, _ := ProjectsOf(res)
	if len(projects) == 0 {
		return nil, chatmodel.NewMissingUpstreamData(MsgNoProjects)
	}
	return projects, nil
}

// databaseList accepts a list, or an object carrying the list
// in the result or databases member.
func databaseList(v any) ([]gjson.Result, error) {
	js, err := codec.Compact(v)
	if err != nil {
		return nil, chatmodel.Mark(err, chatmodel.ErrDecode)
	}

	res := gjson.Parse(js)
	if res.IsObject() {
		for _, key := range []string{"result", "databases"} {
			if list := res.Get(key); list.IsArray() && len(list.Array()) > 0 {
				return list.Array(), nil
			}
		}
		return nil, nil
	}
	if res.IsArray() {
		return res.Array(), nil
	}
	return nil, nil
}
