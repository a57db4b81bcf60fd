package control

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type argsBuilder func(request mcp.CallToolRequest) ([]string, error)

// toolHandler turns a tool call into a command and runs it.
func toolHandler(c *Commander, name string, build argsBuilder) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := build(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		command := append([]string{name}, args...)
		log.Printf("[mcp] %s", strings.Join(command, " "))
		result, err := c.Execute(command)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if result == "" {
			result = "done"
		}
		return mcp.NewToolResultText(result), nil
	}
}

func noArgs(mcp.CallToolRequest) ([]string, error) { return nil, nil }

func intArgs(names ...string) argsBuilder {
	return func(request mcp.CallToolRequest) ([]string, error) {
		args := make([]string, len(names))
		for i, name := range names {
			v, err := request.RequireInt(name)
			if err != nil {
				return nil, err
			}
			args[i] = strconv.Itoa(v)
		}
		return args, nil
	}
}

func stringArg(name string) argsBuilder {
	return func(request mcp.CallToolRequest) ([]string, error) {
		v, err := request.RequireString(name)
		if err != nil {
			return nil, err
		}
		return []string{v}, nil
	}
}

func floatArg(name string) argsBuilder {
	return func(request mcp.CallToolRequest) ([]string, error) {
		v, err := request.RequireFloat(name)
		if err != nil {
			return nil, err
		}
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}, nil
	}
}

var (
	channelParam = mcp.WithNumber("channel", mcp.Required(), mcp.Description("MIDI channel (0-15)."))
	noteParam    = mcp.WithNumber("note", mcp.Required(), mcp.Description("MIDI note number (0-127)."))
)

// NewMCPServer exposes the commands as MCP tools.
func NewMCPServer(c *Commander, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"Partials",
		version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("partials_note-on",
		mcp.WithDescription("Starts a note."),
		channelParam,
		noteParam,
		mcp.WithNumber("velocity", mcp.Required(), mcp.Description("Velocity (1-127).")),
	), toolHandler(c, "note_on", intArgs("channel", "note", "velocity")))

	s.AddTool(mcp.NewTool("partials_note-off",
		mcp.WithDescription("Releases a note."),
		channelParam,
		noteParam,
	), toolHandler(c, "note_off", intArgs("channel", "note")))

	s.AddTool(mcp.NewTool("partials_control-change",
		mcp.WithDescription("Sends a control change, including RPN/NRPN sequences one message at a time."),
		channelParam,
		mcp.WithNumber("number", mcp.Required(), mcp.Description("Controller number (0-127).")),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("Controller value (0-127).")),
	), toolHandler(c, "cc", intArgs("channel", "number", "value")))

	s.AddTool(mcp.NewTool("partials_panic",
		mcp.WithDescription("Releases every note on every channel."),
	), toolHandler(c, "panic", noArgs))

	s.AddTool(mcp.NewTool("partials_set-gain",
		mcp.WithDescription("Sets the master gain."),
		mcp.WithNumber("gain", mcp.Required(), mcp.Description("Master gain (0-4).")),
	), toolHandler(c, "gain", floatArg("gain")))

	s.AddTool(mcp.NewTool("partials_set-voices",
		mcp.WithDescription("Sets the number of voices. Every voice is released."),
		mcp.WithNumber("count", mcp.Required(), mcp.Description("Voice count (1-256).")),
	), toolHandler(c, "voices", intArgs("count")))

	s.AddTool(mcp.NewTool("partials_set-mono",
		mcp.WithDescription("Switches the primary group between polyphonic and monophonic."),
		mcp.WithString("mode", mcp.Required(), mcp.Description("on or off.")),
	), toolHandler(c, "mono", stringArg("mode")))

	s.AddTool(mcp.NewTool("partials_load-patch",
		mcp.WithDescription("Loads a patch from the library into the primary group."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Patch name, see partials_list-patches.")),
	), toolHandler(c, "patch", stringArg("name")))

	s.AddTool(mcp.NewTool("partials_list-patches",
		mcp.WithDescription("Lists the patches of the library."),
	), toolHandler(c, "patches", noArgs))

	s.AddTool(mcp.NewTool("partials_status",
		mcp.WithDescription("Returns the synthesizer status as JSON."),
	), toolHandler(c, "status", noArgs))

	return s
}

// ServeMCP serves the tools over stdio until the client disconnects.
func ServeMCP(c *Commander, version string) error {
	log.Println("starting MCP server...")
	if err := server.ServeStdio(NewMCPServer(c, version)); err != nil {
		return fmt.Errorf("MCP server: %w", err)
	}
	return nil
}
