// Package functions implements the tools offered to the model. Each tool is a
// stateless wrapper declared with a Create*FunctionDeclaration constructor.
package functions

import (
	"net/http"

	"github.com/m2tx/benchagent/internal/knowledge"
	"github.com/m2tx/benchagent/internal/tools"
)

// Deps are the collaborators of the standard tool set. Tools whose
// collaborator is nil are left out.
type Deps struct {
	HTTPClient         *http.Client
	Knowledge          *knowledge.Base
	KnowledgeThreshold float64
	Transcriber        Transcriber
	YouTube            *YouTube
	VideoAnalyzer      VideoAnalyzer
	CodeRunner         CodeRunner
	ChessEngine        *ChessEngine
}

// Default assembles the standard tool set in a fixed order.
func Default(deps Deps) []*tools.FunctionDeclaration {
	threshold := deps.KnowledgeThreshold
	if threshold <= 0 {
		threshold = 0.5
	}

	decls := []*tools.FunctionDeclaration{
		CreateWebSearchFunctionDeclaration(NewDuckDuckGo(deps.HTTPClient)),
		CreateVisitWebpageFunctionDeclaration(NewPageFetcher(deps.HTTPClient), deps.Knowledge),
	}
	if deps.Knowledge != nil {
		decls = append(decls, CreateRetrieveKnowledgeFunctionDeclaration(deps.Knowledge, threshold))
	}
	decls = append(decls,
		CreateWikipediaSearchFunctionDeclaration(NewWikipedia(deps.HTTPClient)),
		CreateAnalyzeDocumentFunctionDeclaration(),
		CreateAnalyzeExcelFunctionDeclaration(),
		CreateLoadFileFunctionDeclaration(),
	)
	if deps.CodeRunner != nil {
		decls = append(decls, CreateExecuteCodeFunctionDeclaration(deps.CodeRunner))
	}
	if deps.Transcriber != nil {
		decls = append(decls, CreateTranscribeAudioFunctionDeclaration(deps.Transcriber))
	}
	if deps.YouTube != nil || deps.VideoAnalyzer != nil {
		decls = append(decls, CreateAnalyzeYoutubeVideoFunctionDeclaration(deps.YouTube, deps.VideoAnalyzer))
	}
	if deps.ChessEngine != nil {
		decls = append(decls, CreateAnalyzeChessFunctionDeclaration(deps.ChessEngine))
	}
	decls = append(decls,
		CreateCalculatorFunctionDeclaration(),
		CreateReverseTextFunctionDeclaration(),
		CreateClassifyFoodsFunctionDeclaration(),
	)
	return decls
}
