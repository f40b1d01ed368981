package functions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/m2tx/benchagent/internal/knowledge"
	"github.com/m2tx/benchagent/internal/tools"
)

const (
	keywordContext    = 120
	maxKeywordMatches = 5
)

func checkFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("file_path is empty")
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("the file at %s does not exist", path)
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

func extension(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// keywordExcerpts returns, per keyword, the number of whole-word matches and
// the text around the first few of them.
func keywordExcerpts(text string, keywords []string) string {
	var b strings.Builder
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		locs := re.FindAllStringIndex(text, -1)
		if len(locs) == 0 {
			continue
		}

		fmt.Fprintf(&b, "Keyword '%s': %d matches\n", kw, len(locs))
		for i, loc := range locs {
			if i == maxKeywordMatches {
				break
			}
			start := max(0, loc[0]-keywordContext)
			end := min(len(text), loc[1]+keywordContext)
			excerpt := strings.Join(strings.Fields(strings.ToValidUTF8(text[start:end], "")), " ")
			fmt.Fprintf(&b, "  - ...%s...\n", excerpt)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func CreateAnalyzeDocumentFunctionDeclaration() *tools.FunctionDeclaration {
	return &tools.FunctionDeclaration{
		Name:        "analyze_document",
		Description: "Extracts specific information from a PDF or text document based on given keywords, returning the text around each match.",
		Parameters: []tools.Parameter{
			{Name: "file_path", Type: tools.TypeString, Description: "The path to the PDF or text document to analyze.", Required: true},
			{Name: "keywords", Type: tools.TypeArray, Items: tools.TypeString, Description: "A list of keywords to search for in the document.", Required: true},
		},
		Call: func(ctx context.Context, args map[string]any) (any, error) {
			path := tools.String(args, "file_path")
			if err := checkFile(path); err != nil {
				return nil, err
			}

			switch extension(path) {
			case "pdf", "txt", "md":
			default:
				return nil, errors.New("unsupported file format, provide a PDF or text file")
			}

			text, err := knowledge.ReadText(path)
			if err != nil {
				return nil, err
			}

			found := keywordExcerpts(text, tools.Strings(args, "keywords"))
			if found == "" {
				return "None of the keywords were found in the document.", nil
			}
			return found, nil
		},
	}
}

// readSheet returns the rows of sheet, or of the first sheet when sheet is empty.
func readSheet(path, sheet string) (string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil, errors.New("the workbook has no sheets")
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if !containsString(sheets, sheet) {
		return "", nil, fmt.Errorf("sheet %q not found, available sheets: %s", sheet, strings.Join(sheets, ", "))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return "", nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return sheet, rows, nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// selectColumns keeps the named columns, using the first row as header.
func selectColumns(rows [][]string, columns []string) ([][]string, error) {
	if len(columns) == 0 || len(rows) == 0 {
		return rows, nil
	}

	header := rows[0]
	indexes := make([]int, 0, len(columns))
	for _, col := range columns {
		idx := -1
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(col)) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("column %q not found, available columns: %s", col, strings.Join(header, ", "))
		}
		indexes = append(indexes, idx)
	}

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		selected := make([]string, len(indexes))
		for i, idx := range indexes {
			if idx < len(row) {
				selected[i] = row[idx]
			}
		}
		out = append(out, selected)
	}
	return out, nil
}

// markdownTable renders rows with the first row as header. Short rows are padded.
func markdownTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	if width == 0 {
		return ""
	}

	cell := strings.NewReplacer("|", `\|`, "\n", " ", "\r", "")
	line := func(row []string) string {
		cells := make([]string, width)
		for i := range cells {
			if i < len(row) {
				cells[i] = cell.Replace(strings.TrimSpace(row[i]))
			}
		}
		return "| " + strings.Join(cells, " | ") + " |"
	}

	var b strings.Builder
	b.WriteString(line(rows[0]))
	b.WriteString("\n|" + strings.Repeat(" --- |", width))
	for _, row := range rows[1:] {
		b.WriteString("\n")
		b.WriteString(line(row))
	}
	return b.String()
}

func CreateAnalyzeExcelFunctionDeclaration() *tools.FunctionDeclaration {
	return &tools.FunctionDeclaration{
		Name:        "analyze_excel",
		Description: "Reads a sheet of an Excel file and returns it as a markdown table, optionally restricted to some columns.",
		Parameters: []tools.Parameter{
			{Name: "file_path", Type: tools.TypeString, Description: "The path to the Excel file to analyze.", Required: true},
			{Name: "sheet_name", Type: tools.TypeString, Description: "The name of the sheet to read. The first sheet is used when omitted."},
			{Name: "specific_columns", Type: tools.TypeArray, Items: tools.TypeString, Description: "Column names to extract. All columns are extracted when omitted."},
		},
		Call: func(ctx context.Context, args map[string]any) (any, error) {
			path := tools.String(args, "file_path")
			if err := checkFile(path); err != nil {
				return nil, err
			}

			sheet, rows, err := readSheet(path, tools.String(args, "sheet_name"))
			if err != nil {
				return nil, err
			}
			if len(rows) == 0 {
				return fmt.Sprintf("The sheet %q is empty.", sheet), nil
			}

			rows, err = selectColumns(rows, tools.Strings(args, "specific_columns"))
			if err != nil {
				return nil, err
			}
			return fmt.Sprintf("Excel sheet %q contains:\n\n%s", sheet, markdownTable(rows)), nil
		},
	}
}

func CreateLoadFileFunctionDeclaration() *tools.FunctionDeclaration {
	return &tools.FunctionDeclaration{
		Name:        "load_file",
		Description: "Loads the content of a file as text: source code, text, CSV, JSON, PDF or every sheet of an Excel workbook.",
		Parameters: []tools.Parameter{
			{Name: "file_path", Type: tools.TypeString, Description: "The path to the file to be loaded.", Required: true},
		},
		Call: func(ctx context.Context, args map[string]any) (any, error) {
			path := tools.String(args, "file_path")
			if err := checkFile(path); err != nil {
				return nil, err
			}

			switch ext := extension(path); ext {
			case "py", "txt", "md", "csv", "json", "jsonl", "xml", "html", "yaml", "yml", "pdf":
				text, err := knowledge.ReadText(path)
				if err != nil {
					return nil, err
				}
				return truncate(text, maxInlineOutput), nil
			case "xlsx", "xlsm":
				return loadWorkbook(path)
			case "mp3", "wav", "m4a", "flac", "ogg":
				return nil, fmt.Errorf("%s is an audio file, use transcribe_audio", path)
			default:
				return nil, fmt.Errorf("unsupported file type: %s", ext)
			}
		},
	}
}

func loadWorkbook(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", sheet, markdownTable(rows))
	}
	return truncate(strings.TrimSpace(b.String()), maxInlineOutput), nil
}
