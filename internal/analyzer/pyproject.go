package analyzer

import (
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// pyProjectFile is the slice of pyproject.toml the analyzer cares about.
type pyProjectFile struct {
	Project struct {
		Name string `toml:"name"`
	} `toml:"project"`
}

// pySourcePrefix detects the src-layout convention: a project with a
// pyproject.toml whose packages live under src/ imports them without the
// src segment, so module paths must strip it. Returns "" for flat layouts.
func pySourcePrefix(req *Request) string {
	data, err := req.Sources.Load("pyproject.toml")
	if err != nil {
		return ""
	}

	var project pyProjectFile
	if err := toml.Unmarshal(data, &project); err != nil {
		return ""
	}

	for _, f := range req.Files {
		if strings.HasPrefix(f, "src/") {
			return "src/"
		}
	}
	return ""
}
