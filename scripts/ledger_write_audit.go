package main

import (
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ledger tables may only be written through the WaxLedgerAggregate. This tool scans
// internal/services for direct write calls on ledger repos and exits non-zero when it finds any.

type repoField struct {
	Name     string `json:"name"`
	RepoType string `json:"repo_type"`
	Ledger   bool   `json:"ledger"`
}

type methodStats struct {
	StructName           string   `json:"struct_name"`
	Method               string   `json:"method"`
	File                 string   `json:"file"`
	Line                 int      `json:"line"`
	LedgerRepoWriteCalls int      `json:"ledger_repo_write_calls"`
	LedgerFieldsWritten  []string `json:"ledger_fields_written"`
	AggregateWriteCalls  int      `json:"aggregate_write_calls"`
	AggregateMethods     []string `json:"aggregate_methods"`
}

type auditReport struct {
	LedgerRepoWriteCallsites int           `json:"ledger_repo_write_callsites"`
	AggregateWriteCallsites  int           `json:"aggregate_write_callsites"`
	Violations               []methodStats `json:"violations"`
	AggregateAdopters        []methodStats `json:"aggregate_adopters"`
	LedgerRepoFields         []repoField   `json:"ledger_repo_fields"`
}

// structFields records, per struct, repo and aggregate fields plus fields whose type is another
// local struct (the deps pattern).
type structFields struct {
	RepoFields      map[string]repoField
	AggregateFields map[string]string
	Nested          map[string]string
}

var repoWriteMethods = map[string]bool{
	"Create":       true,
	"EnsureExists": true,
	"LockByUserID": true,
	"SetFrozen":    true,
}

var aggregateWriteMethods = map[string]bool{
	"Earn":       true,
	"Spend":      true,
	"ClaimDaily": true,
	"Reconcile":  true,
	"Unfreeze":   true,
}

func main() {
	root := "."
	if len(os.Args) > 1 {
		root = os.Args[1]
	}
	report, err := auditServices(root)
	if err != nil {
		exitf("%v", err)
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		exitf("marshal report: %v", err)
	}
	fmt.Println(string(out))
	if report.LedgerRepoWriteCallsites > 0 {
		os.Exit(2)
	}
}

func auditServices(root string) (auditReport, error) {
	servicesDir := filepath.Join(root, "internal", "services")
	fset := token.NewFileSet()

	pkgs, err := parser.ParseDir(fset, servicesDir, func(fi os.FileInfo) bool {
		name := fi.Name()
		return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
	}, 0)
	if err != nil {
		return auditReport{}, fmt.Errorf("parse dir: %w", err)
	}
	pkg, ok := pkgs["services"]
	if !ok {
		return auditReport{}, fmt.Errorf("services package not found in %s", servicesDir)
	}

	fieldsByStruct := map[string]structFields{}
	for _, f := range pkg.Files {
		collectStructFields(f, fieldsByStruct)
	}

	var methods []methodStats
	for filePath, f := range pkg.Files {
		rel, err := filepath.Rel(root, filePath)
		if err != nil {
			rel = filePath
		}
		collectMethodStats(fset, f, rel, fieldsByStruct, &methods)
	}
	return buildReport(fieldsByStruct, methods), nil
}

func collectStructFields(file *ast.File, out map[string]structFields) {
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok || st.Fields == nil {
				continue
			}
			sf := structFields{
				RepoFields:      map[string]repoField{},
				AggregateFields: map[string]string{},
				Nested:          map[string]string{},
			}
			for _, field := range st.Fields.List {
				if len(field.Names) == 0 {
					continue
				}
				fieldName := field.Names[0].Name
				switch t := field.Type.(type) {
				case *ast.Ident:
					sf.Nested[fieldName] = t.Name
				case *ast.SelectorExpr:
					pkgIdent, ok := t.X.(*ast.Ident)
					if !ok {
						continue
					}
					typeName := strings.TrimSpace(t.Sel.Name)
					switch pkgIdent.Name {
					case "repos":
						if !strings.HasSuffix(typeName, "Repo") {
							continue
						}
						sf.RepoFields[fieldName] = repoField{
							Name:     fieldName,
							RepoType: typeName,
							Ledger:   isLedgerRepo(typeName),
						}
					case "domainagg":
						if strings.HasSuffix(typeName, "Aggregate") {
							sf.AggregateFields[fieldName] = typeName
						}
					}
				}
			}
			if len(sf.RepoFields) > 0 || len(sf.AggregateFields) > 0 || len(sf.Nested) > 0 {
				out[ts.Name.Name] = sf
			}
		}
	}
}

func collectMethodStats(
	fset *token.FileSet,
	file *ast.File,
	relFile string,
	fieldsByStruct map[string]structFields,
	out *[]methodStats,
) {
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Recv == nil || fd.Body == nil || len(fd.Recv.List) == 0 {
			continue
		}
		recvName, recvType := recvInfo(fd.Recv.List[0])
		if recvType == "" || recvName == "" {
			continue
		}
		if _, ok := fieldsByStruct[recvType]; !ok {
			continue
		}

		ledgerCalls := 0
		ledgerFields := map[string]bool{}
		aggCalls := 0
		aggMethods := map[string]bool{}

		ast.Inspect(fd.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			fnSel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			owner, field, ok := resolveField(fnSel.X, recvName, recvType, fieldsByStruct)
			if !ok {
				return true
			}
			method := strings.TrimSpace(fnSel.Sel.Name)
			sf := fieldsByStruct[owner]
			if rf, ok := sf.RepoFields[field]; ok && rf.Ledger && repoWriteMethods[method] {
				ledgerCalls++
				ledgerFields[field] = true
				return true
			}
			if _, ok := sf.AggregateFields[field]; ok && aggregateWriteMethods[method] {
				aggCalls++
				aggMethods[method] = true
			}
			return true
		})

		*out = append(*out, methodStats{
			StructName:           recvType,
			Method:               fd.Name.Name,
			File:                 filepath.ToSlash(relFile),
			Line:                 fset.Position(fd.Pos()).Line,
			LedgerRepoWriteCalls: ledgerCalls,
			LedgerFieldsWritten:  sortedKeys(ledgerFields),
			AggregateWriteCalls:  aggCalls,
			AggregateMethods:     sortedKeys(aggMethods),
		})
	}
}

// resolveField follows recv.field or recv.deps.field back to the struct that declares field.
func resolveField(x ast.Expr, recvName, recvType string, fieldsByStruct map[string]structFields) (string, string, bool) {
	sel, ok := x.(*ast.SelectorExpr)
	if !ok {
		return "", "", false
	}
	field := strings.TrimSpace(sel.Sel.Name)
	switch inner := sel.X.(type) {
	case *ast.Ident:
		if inner.Name != recvName {
			return "", "", false
		}
		return recvType, field, true
	case *ast.SelectorExpr:
		base, ok := inner.X.(*ast.Ident)
		if !ok || base.Name != recvName {
			return "", "", false
		}
		nestedType, ok := fieldsByStruct[recvType].Nested[inner.Sel.Name]
		if !ok {
			return "", "", false
		}
		if _, ok := fieldsByStruct[nestedType]; !ok {
			return "", "", false
		}
		return nestedType, field, true
	}
	return "", "", false
}

func buildReport(fieldsByStruct map[string]structFields, methods []methodStats) auditReport {
	sort.Slice(methods, func(i, j int) bool {
		if methods[i].File == methods[j].File {
			return methods[i].Line < methods[j].Line
		}
		return methods[i].File < methods[j].File
	})

	var report auditReport
	for _, m := range methods {
		if m.LedgerRepoWriteCalls > 0 {
			report.LedgerRepoWriteCallsites += m.LedgerRepoWriteCalls
			report.Violations = append(report.Violations, m)
		}
		if m.AggregateWriteCalls > 0 {
			report.AggregateWriteCallsites += m.AggregateWriteCalls
			report.AggregateAdopters = append(report.AggregateAdopters, m)
		}
	}

	ledgerFields := map[string]repoField{}
	for structName, sf := range fieldsByStruct {
		for _, rf := range sf.RepoFields {
			if rf.Ledger {
				ledgerFields[structName+"."+rf.Name] = rf
			}
		}
	}
	keys := make([]string, 0, len(ledgerFields))
	for k := range ledgerFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		report.LedgerRepoFields = append(report.LedgerRepoFields, ledgerFields[k])
	}
	return report
}

func recvInfo(field *ast.Field) (string, string) {
	if field == nil || len(field.Names) == 0 {
		return "", ""
	}
	recvName := field.Names[0].Name
	switch t := field.Type.(type) {
	case *ast.StarExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return recvName, id.Name
		}
	case *ast.Ident:
		return recvName, t.Name
	}
	return "", ""
}

func isLedgerRepo(repoType string) bool {
	return strings.HasPrefix(strings.TrimSpace(repoType), "Wax")
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
