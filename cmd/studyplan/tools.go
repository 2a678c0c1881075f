package main

import (
	"github.com/tailored-agentic-units/studyplan/tools"
	"github.com/tailored-agentic-units/studyplan/tools/arxiv"
	"github.com/tailored-agentic-units/studyplan/tools/video"
)

// registerTools adds the paper and video lookups to the default registry
// the kernel resolves stage tools from.
func registerTools() error {
	r := tools.Default()
	if _, ok := r.Get(arxiv.ToolName); !ok {
		if err := arxiv.New().Register(r); err != nil {
			return err
		}
	}
	if _, ok := r.Get(video.ToolName); !ok {
		if err := video.New().Register(r); err != nil {
			return err
		}
	}
	return nil
}
