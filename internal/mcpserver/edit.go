package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/scriptor/internal/command"
	"github.com/starford/scriptor/internal/document"
	"github.com/starford/scriptor/internal/editor"
)

var errNoMatch = errors.New("text not found in note")

// edit runs fn in a short-lived session on note id and saves the result.
// A note that could not be parsed is refused rather than overwritten.
func (s *Server) edit(ctx context.Context, id string, fn func(*editor.Session) (command.Result, error)) error {
	sess, err := s.sessions.Open(ctx, id)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.sessions.Close(ctx, sess.ID()); err != nil {
			s.logger.Warn("mcp: close session failed", slog.String("id", id), slog.String("error", err.Error()))
		}
	}()
	if w := sess.State().Warning; w != "" {
		return fmt.Errorf("note %s cannot be edited: %s", id, w)
	}

	res, err := fn(sess)
	if err != nil {
		return err
	}
	if !res.Changed {
		return errors.New("edit did not apply to the selected text")
	}
	if err := sess.Save(ctx); err != nil {
		return err
	}
	s.sessions.Refresh(ctx, id)
	return nil
}

// selectMatch selects the first occurrence of match in the session document.
func selectMatch(sess *editor.Session, match string) (document.Range, error) {
	r, ok := sess.Document().Content.Find(match)
	if !ok {
		return document.Range{}, errNoMatch
	}
	return sess.Select(r)
}

func (s *Server) formatNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	match, err := req.RequireString("match")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cmd := command.Name(strings.TrimSpace(name))
	if cmd == command.Undo || cmd == command.Redo {
		return mcp.NewToolResultError("undo and redo are not available here"), nil
	}
	arg := optString(req, "arg")

	err = s.edit(ctx, id, func(sess *editor.Session) (command.Result, error) {
		if _, err := selectMatch(sess, match); err != nil {
			return command.Result{}, err
		}
		return sess.Execute(cmd, arg)
	})
	if err != nil {
		return toolError(id, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("formatted: %s (%s)", id, cmd)), nil
}

func (s *Server) insertImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	alt, after := optString(req, "alt"), optString(req, "after")

	err = s.edit(ctx, id, func(sess *editor.Session) (command.Result, error) {
		if after != "" {
			r, err := selectMatch(sess, after)
			if err != nil {
				return command.Result{}, err
			}
			if _, err := sess.Select(document.Caret(r.End())); err != nil {
				return command.Result{}, err
			}
		}
		if strings.HasPrefix(rawURL, "data:") {
			return sess.InsertImageDataURI(rawURL, alt)
		}
		return sess.InsertImageURL(ctx, rawURL, alt)
	})
	if err != nil {
		return toolError(id, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("image inserted: %s", id)), nil
}

func (s *Server) readCommandsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var names []string
	for _, n := range command.Names() {
		if n != command.Undo && n != command.Redo {
			names = append(names, string(n))
		}
	}
	out, err := json.Marshal(names)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      commandsURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
