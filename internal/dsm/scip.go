package dsm

import (
	"fmt"
	"os"
	"sort"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"
)

// fileSymbol renders the SCIP symbol for a repository file.
func fileSymbol(path string) string {
	return fmt.Sprintf("macaroni . . . `%s`/", path)
}

// ToSCIP converts the payload into a SCIP index: one document per file, the
// file-level dependency edges encoded as reference relationships.
func (p *Payload) ToSCIP(projectRoot string, toolVersion string) *scippb.Index {
	index := &scippb.Index{
		Metadata: &scippb.Metadata{
			Version: scippb.ProtocolVersion_UnspecifiedProtocolVersion,
			ToolInfo: &scippb.ToolInfo{
				Name:    "macaroni-arch",
				Version: toolVersion,
			},
			ProjectRoot:          "file://" + projectRoot,
			TextDocumentEncoding: scippb.TextEncoding_UTF8,
		},
	}

	for _, path := range p.FileList {
		record := p.Files[path]
		if record == nil {
			continue
		}

		sym := &scippb.SymbolInformation{
			Symbol:      fileSymbol(path),
			DisplayName: path,
			Kind:        scippb.SymbolInformation_File,
		}

		for _, dep := range record.Dependencies {
			sym.Relationships = append(sym.Relationships, &scippb.Relationship{
				Symbol:      fileSymbol(dep.FileName),
				IsReference: true,
			})
		}
		sort.Slice(sym.Relationships, func(i, j int) bool {
			return sym.Relationships[i].Symbol < sym.Relationships[j].Symbol
		})

		index.Documents = append(index.Documents, &scippb.Document{
			RelativePath: path,
			Symbols:      []*scippb.SymbolInformation{sym},
		})
	}

	return index
}

// WriteSCIP marshals the payload as a SCIP index file.
func (p *Payload) WriteSCIP(outPath string, projectRoot string, toolVersion string) error {
	data, err := proto.Marshal(p.ToSCIP(projectRoot, toolVersion))
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, data, 0644)
}
