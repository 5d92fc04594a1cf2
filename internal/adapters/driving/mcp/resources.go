package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for kbindex resources.
	uriScheme = "kbindex://"

	indexURI  = uriScheme + "index"
	buildsURI = uriScheme + "builds"

	// recentBuilds is how many builds the builds resource lists.
	recentBuilds = 10
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         indexURI,
		Name:        "index",
		Description: "Statistics of the loaded knowledge-base index",
		MIMEType:    "application/json",
	}, s.handleIndexResource)

	s.server.AddResource(&mcp.Resource{
		URI:         buildsURI,
		Name:        "builds",
		Description: "Recent index builds, newest first",
		MIMEType:    "application/json",
	}, s.handleBuildsResource)
}

// indexInfo is the body of the index resource.
type indexInfo struct {
	Loaded    bool                `json:"loaded"`
	Stats     *domain.IndexStats  `json:"stats,omitempty"`
	LastBuild *domain.BuildReport `json:"last_build,omitempty"`
}

// handleIndexResource describes the loaded index and the last build.
func (s *Server) handleIndexResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	var info indexInfo

	stats, err := s.ports.Retriever.Stats()
	switch {
	case err == nil:
		info.Loaded = true
		info.Stats = &stats
	case !errors.Is(err, domain.ErrIndexNotLoaded):
		return nil, fmt.Errorf("reading index stats: %w", err)
	}

	if s.ports.History != nil {
		latest, err := s.ports.History.Latest(ctx)
		switch {
		case err == nil:
			info.LastBuild = latest
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("reading build history: %w", err)
		}
	}

	return jsonResult(req.Params.URI, info)
}

// handleBuildsResource lists recent builds.
func (s *Server) handleBuildsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	builds := []domain.BuildReport{}
	if s.ports.History != nil {
		recent, err := s.ports.History.Recent(ctx, recentBuilds)
		if err != nil {
			return nil, fmt.Errorf("listing builds: %w", err)
		}
		builds = append(builds, recent...)
	}
	return jsonResult(req.Params.URI, builds)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
