// Package notion declares the Notion workspace tools served by the MCP host
// and the producer chain that fills the project list for analysis.
package notion

import (
	"github.com/effective-security/mcpchat/pkg/schema"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat/tools", "notion")

// Tool names
const (
	ToolSearchDatabases   = "search_databases"
	ToolGetProjects       = "get_projects"
	ToolGetDatabaseSchema = "get_database_schema"
	ToolAnalyzeProjects   = "analyze_projects"
	ToolGetPageSummary    = "get_page_summary"
)

// Argument and result keys
const (
	ArgQuery      = "query"
	ArgDatabaseID = "database_id"
	ArgAnalyze    = "analyze"

	ResultProjects = "projects"
)

// ProjectsQuery is the search keyword of the projects database
const ProjectsQuery = "프로젝트"

// SearchDatabasesInput is the input of search_databases
type SearchDatabasesInput struct {
	Query string `json:"query"`
}

// GetProjectsInput is the input of get_projects
type GetProjectsInput struct {
	DatabaseID string `json:"database_id"`
}

// GetDatabaseSchemaInput is the input of get_database_schema
type GetDatabaseSchemaInput struct {
	GetSchema string `json:"get_schema"`
}

// AnalyzeProjectsInput is the input of analyze_projects
type AnalyzeProjectsInput struct {
	Analyze []map[string]any `json:"analyze"`
}

// GetPageSummaryInput is the input of get_page_summary
type GetPageSummaryInput struct {
	PageID string `json:"page_id" jsonschema_description:"페이지 ID"`
}

const analyzeProjectsDescription = "조회된 프로젝트 목록을 받아, 아래 **분석 방식**에 따라 결과를 생성합니다:\n\n" +
	"① 정량 분석 (데이터 기반 통계)\n" +
	"- 총 프로젝트 개수, 완료/진행/보류 비율\n" +
	"- 평균 완료율, 전체 완료된 태스크 비율\n" +
	"- 평균 소요 시간(종료일–시작일), 마감 초과율, 지연 프로젝트 비율\n" +
	"- 우선순위(High/Medium/Low) 분포\n" +
	"- 담당자별 프로젝트 수 및 업무 편중 여부\n" +
	"- 팀(태그)별 프로젝트 분포\n\n" +
	"② 정성 분석 (내용 기반)\n" +
	"- 프로젝트 설명 텍스트 요약\n" +
	"- ‘지연’, ‘문제’, ‘막힘’ 키워드 탐색으로 리스크 탐지\n" +
	"- 비효율적인 일정·구조 개선 제안\n" +
	"- 프로젝트 간 연관성 매핑 (Relation 기반)\n\n" +
	"결과는 **예시 형태**로 아래처럼 출력하세요:\n" +
	"```\n" +
	"총 프로젝트 수: 35개 (완료 20, 진행 10, 보류 5)\n" +
	"평균 소요 기간: 12.4일 (평균 마감 초과: +3.2일)\n" +
	"High 우선순위 중 40% 지연됨\n\n" +
	"💬 개선 제안:\n" +
	"- 마감일 초과 건 多 → 중간 점검 주기 도입\n" +
	"- ‘마케팅’ 팀 프로젝트 진행률 낮음 → 인력 재배치 검토\n" +
	"```"

// Capabilities returns the five Notion tools in the order they are offered to the model
func Capabilities() ([]*tools.Capability, error) {
	search, err := tools.NewCapability[SearchDatabasesInput](ToolSearchDatabases,
		"Notion에서 사용자 질의에 맞는 데이터베이스 객체(스키마) 목록을 검색합니다.")
	if err != nil {
		return nil, err
	}
	search.Returns = schema.MustFromAny(map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":    map[string]any{"type": "string"},
				"title": map[string]any{"type": "string"},
			},
			"required": []string{"id", "title"},
		},
	})

	projects, err := tools.NewCapability[GetProjectsInput](ToolGetProjects,
		"특정 database_id에 속한 모든 프로젝트 항목을 반환합니다.")
	if err != nil {
		return nil, err
	}
	projects.Returns = schema.MustFromAny(map[string]any{
		"type": "object",
		"properties": map[string]any{
			ResultProjects: map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "object"},
			},
		},
	})
	projects.DatasetOf = ProjectsOf

	dbSchema, err := tools.NewCapability[GetDatabaseSchemaInput](ToolGetDatabaseSchema,
		"특정 database_id의 속성 옵션(스키마) 전체를 반환합니다.")
	if err != nil {
		return nil, err
	}
	dbSchema.Returns = schema.MustFromAny(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"schema": map[string]any{
				"type": "object",
				"additionalProperties": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
		},
	})

	analyze, err := tools.NewCapability[AnalyzeProjectsInput](ToolAnalyzeProjects, analyzeProjectsDescription)
	if err != nil {
		return nil, err
	}
	analyze.Returns = schema.MustFromAny(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"analysis": map[string]any{"type": "string"},
		},
	})
	analyze.Injector = InjectProjects

	summary, err := tools.NewCapability[GetPageSummaryInput](ToolGetPageSummary,
		"페이지 텍스트를 요약합니다.")
	if err != nil {
		return nil, err
	}

	return []*tools.Capability{search, projects, dbSchema, analyze, summary}, nil
}

// NewRegistry returns the capability table of the Notion tools
func NewRegistry() (*tools.Registry, error) {
	caps, err := Capabilities()
	if err != nil {
		return nil, err
	}
	return tools.NewRegistry(caps...)
}
