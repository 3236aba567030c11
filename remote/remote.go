// Package remote exposes the parameter layer as MCP tools over stdio, so an
// assistant can read and edit patterns while the sequencer runs.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"go-stepseq/debug"
	"go-stepseq/params"
	"go-stepseq/pattern"
	"go-stepseq/transform"
)

const Version = "1.0.0"

// Server holds the tool handlers.
type Server struct {
	host *params.Host
	mcp  *server.MCPServer
}

// New registers every tool against host.
func New(host *params.Host) *Server {
	s := &Server{
		host: host,
		mcp: server.NewMCPServer(
			"stepseq MCP",
			Version,
			server.WithToolCapabilities(false),
		),
	}

	s.mcp.AddTool(mcp.NewTool("stepseq_describe",
		mcp.WithDescription("Lists every sequencer parameter with its range, current value and display text."),
	), s.describe)

	s.mcp.AddTool(mcp.NewTool("stepseq_get-param",
		mcp.WithDescription("Reads one parameter."),
		mcp.WithString("param", mcp.Required(), mcp.Description("Parameter name (e.g. PITCH, SEQLEN) or numeric id.")),
	), s.getParam)

	s.mcp.AddTool(mcp.NewTool("stepseq_set-param",
		mcp.WithDescription("Writes one parameter. Values outside the range are clamped."),
		mcp.WithString("param", mcp.Required(), mcp.Description("Parameter name (e.g. PITCH, SEQLEN) or numeric id.")),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("Raw parameter value within the parameter's min..max.")),
	), s.setParam)

	s.mcp.AddTool(mcp.NewTool("stepseq_select-pattern",
		mcp.WithDescription("Selects the playing pattern. Playback restarts from the first step."),
		mcp.WithNumber("pattern", mcp.Required(), mcp.Description("Pattern number (1-8).")),
	), s.selectPattern)

	s.mcp.AddTool(mcp.NewTool("stepseq_transform",
		mcp.WithDescription("Applies a transform to the selected pattern: "+strings.Join(transformNames(), ", ")+"."),
		mcp.WithString("operation", mcp.Required(), mcp.Description("Transform name.")),
		mcp.WithNumber("amount", mcp.Description("SHIFT: steps to rotate, negative moves left. Defaults to 1.")),
		mcp.WithNumber("src", mcp.Description("SLICE_COPY: first source step (1-based).")),
		mcp.WithNumber("dst", mcp.Description("SLICE_COPY: first destination step (1-based).")),
		mcp.WithNumber("length", mcp.Description("SLICE_COPY: number of steps. Defaults to the slice length.")),
	), s.applyTransform)

	s.mcp.AddTool(mcp.NewTool("stepseq_dump-pattern",
		mcp.WithDescription("Returns a pattern's loop settings and steps as JSON."),
		mcp.WithNumber("pattern", mcp.Description("Pattern number (1-8). Defaults to the selected pattern.")),
	), s.dumpPattern)

	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio blocks serving requests on stdin/stdout.
func (s *Server) ServeStdio() error {
	debug.Log("mcp", "serving %d parameters over stdio", len(s.host.Table()))
	return server.ServeStdio(s.mcp)
}

func transformNames() []string {
	names := make([]string, 0, transform.NumOps+3)
	for op := transform.Op(0); op < transform.NumOps; op++ {
		names = append(names, op.String())
	}
	return append(names, "PALINDROME", "SHIFT", "SLICE_COPY")
}

func (s *Server) lookup(request mcp.CallToolRequest) (params.Param, error) {
	name, err := request.RequireString("param")
	if err != nil {
		return params.Param{}, err
	}
	table := s.host.Table()
	if id, err := strconv.Atoi(name); err == nil {
		if p, ok := table.Lookup(id); ok {
			return p, nil
		}
	} else if p, ok := table.ByName(name); ok {
		return p, nil
	}
	return params.Param{}, fault.New("unknown parameter",
		fmsg.WithDesc("unknown parameter", fmt.Sprintf("Unknown parameter %q.", name)),
		ftag.With(ftag.NotFound))
}

// issue is the user-facing text of err.
func issue(err error) string {
	if msg := fmsg.GetIssue(err); msg != "" {
		return msg
	}
	return err.Error()
}

type paramResult struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Value   int    `json:"value"`
	Display string `json:"display"`
}

func (s *Server) describe(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	debug.Log("mcp", "describe")
	out := struct {
		Variant       string         `json:"variant"`
		Pattern       int            `json:"pattern"`
		EditStep      int            `json:"editStep"`
		Parameters    []params.Value `json:"parameters"`
		PatternsCount int            `json:"patterns"`
	}{
		Variant:       s.host.Store().Variant().String(),
		Pattern:       s.host.Store().Selected() + 1,
		EditStep:      s.host.EditStep() + 1,
		Parameters:    s.host.Describe(),
		PatternsCount: pattern.NumPatterns,
	}
	return jsonResult(out)
}

func (s *Server) getParam(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.lookup(request)
	if err != nil {
		return mcp.NewToolResultError(issue(err)), nil
	}
	return s.readBack(p)
}

func (s *Server) setParam(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.lookup(request)
	if err != nil {
		return mcp.NewToolResultError(issue(err)), nil
	}
	value, err := request.RequireInt("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	debug.Log("mcp", "set %s = %d", p.Name, value)
	if err := s.host.Set(p.ID, value); err != nil {
		return mcp.NewToolResultError(issue(err)), nil
	}
	return s.readBack(p)
}

func (s *Server) readBack(p params.Param) (*mcp.CallToolResult, error) {
	v, err := s.host.Get(p.ID)
	if err != nil {
		return mcp.NewToolResultError(issue(err)), nil
	}
	return jsonResult(paramResult{ID: p.ID, Name: p.Name, Value: v, Display: p.Display(v)})
}

func (s *Server) selectPattern(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := request.RequireInt("pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if n < 1 || n > pattern.NumPatterns {
		return mcp.NewToolResultError(fmt.Sprintf("pattern must be 1-%d, got %d", pattern.NumPatterns, n)), nil
	}
	debug.Log("mcp", "select pattern %d", n)
	s.host.Store().SelectPattern(n - 1)
	return mcp.NewToolResultText(fmt.Sprintf("Pattern %d selected.", n)), nil
}

func (s *Server) applyTransform(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("operation")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name = strings.ToUpper(strings.TrimSpace(name))
	debug.Log("mcp", "transform %s", name)

	switch name {
	case "PALINDROME":
		s.host.Palindrome()
	case "SHIFT":
		s.host.ShiftBy(request.GetInt("amount", 1))
	case "SLICE_COPY":
		seq := s.host.Store().Sequence(s.host.Store().Selected())
		src, err := request.RequireInt("src")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dst, err := request.RequireInt("dst")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		s.host.SliceCopy(src-1, dst-1, request.GetInt("length", seq.SliceLength))
	default:
		op, ok := transform.ParseOp(name)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown operation %q; use one of %s", name, strings.Join(transformNames(), ", "))), nil
		}
		s.host.Transform(op)
	}
	return s.dump(s.host.Store().Selected())
}

func (s *Server) dumpPattern(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n := request.GetInt("pattern", s.host.Store().Selected()+1)
	if n < 1 || n > pattern.NumPatterns {
		return mcp.NewToolResultError(fmt.Sprintf("pattern must be 1-%d, got %d", pattern.NumPatterns, n)), nil
	}
	return s.dump(n - 1)
}

// PatternDump is the JSON view of one pattern.
type PatternDump struct {
	Pattern     int            `json:"pattern"` // 1-based
	Length      int            `json:"length"`
	Direction   string         `json:"direction"`
	Swing       float64        `json:"swing"`
	SliceLength int            `json:"sliceLength"`
	Steps       []pattern.Step `json:"steps"`
}

func (s *Server) dump(p int) (*mcp.CallToolResult, error) {
	seq := s.host.Store().Sequence(p)
	return jsonResult(PatternDump{
		Pattern:     p + 1,
		Length:      seq.Length,
		Direction:   seq.Direction.String(),
		Swing:       seq.Swing,
		SliceLength: seq.SliceLength,
		Steps:       append([]pattern.Step(nil), seq.Loop()...),
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	asJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("marshal result"))
	}
	return mcp.NewToolResultText(string(asJSON)), nil
}
