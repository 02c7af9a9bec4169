package writemusic

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/livefir/writemusic/internal/debounce"
	"github.com/livefir/writemusic/internal/memory"
	"github.com/livefir/writemusic/internal/vdom"
)

const (
	// SessionCookie holds the HTTP fallback session ID
	SessionCookie = "writemusic-session"

	// SessionHeader is consulted when cookies are unavailable
	SessionHeader = "X-Writemusic-Session"

	// WebSocketHeader tells clients whether to try a WebSocket
	WebSocketHeader = "X-Writemusic-WebSocket"

	// messageOverhead is what a message envelope may add around its text
	messageOverhead = 4096
)

// liveHandler handles both WebSocket and HTTP requests
type liveHandler struct {
	v *Visualizer
}

func (h *liveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Add header to indicate WebSocket availability
	if h.v.config.WebSocketDisabled {
		w.Header().Set(WebSocketHeader, "disabled")
	} else {
		w.Header().Set(WebSocketHeader, "enabled")
	}

	if websocket.IsWebSocketUpgrade(r) {
		if h.v.config.WebSocketDisabled {
			http.Error(w, "WebSocket is disabled on this endpoint", http.StatusBadRequest)
			return
		}
		h.handleWebSocket(w, r)
	} else {
		h.handleHTTP(w, r)
	}
}

// frameWriter serializes writes to one connection
type frameWriter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (fw *frameWriter) write(frame Frame) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return writeFrameWebSocket(fw.conn, frame)
}

func (fw *frameWriter) patch(patch vdom.Patch) error {
	return fw.write(patchFrame(patch))
}

func (h *liveHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	v := h.v

	conn, err := v.config.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(int64(v.config.MaxTextLength) + messageOverhead)
	log.Printf("Client connected from %s", conn.RemoteAddr())

	writer := &frameWriter{conn: conn}

	p, err := v.newPage(writer.patch)
	if err != nil {
		log.Printf("Failed to create page: %v", err)
		_ = writer.write(errorFrame(err))
		return
	}
	defer v.closePage(p)
	v.metrics.IncrementCustomCounter("websocket_connections")

	// Edits are coalesced; the last text of a burst is always rendered
	edits := debounce.New(v.config.Debounce, func(text string) {
		if _, err := v.edit(p, text); err != nil {
			log.Printf("Edit failed: %v", err)
			if err := writer.write(errorFrame(err)); err != nil {
				log.Printf("WebSocket write failed: %v", err)
			}
		}
	})
	defer edits.Stop()

	if err := writer.write(v.mount(p)); err != nil {
		log.Printf("Failed to send initial tree: %v", err)
		return
	}

	// message loop
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if err := h.dispatch(p, data, edits.Call); err != nil {
			log.Printf("Message rejected: %v", err)
			if err := writer.write(errorFrame(err)); err != nil {
				log.Printf("WebSocket write failed: %v", err)
				break
			}
		}
	}

	log.Printf("Client disconnected")
}

// dispatch validates a client message and routes it. Edits go to edit;
// geometry is applied at once.
func (h *liveHandler) dispatch(p *page, data []byte, edit func(string)) error {
	v := h.v

	msg, err := parseMessage(data, v.validate)
	if err != nil {
		v.metrics.IncrementMessageRejected()
		return err
	}

	switch msg.Action {
	case ActionEdit:
		text, err := bindEdit(msg, v.validate, v.config.MaxTextLength)
		if err != nil {
			v.metrics.IncrementMessageRejected()
			return err
		}
		v.metrics.IncrementEditReceived()
		edit(text)

	case ActionGeometry:
		g, err := bindGeometry(msg, v.validate)
		if err != nil {
			v.metrics.IncrementMessageRejected()
			return err
		}
		v.geometry(p, g)

	default:
		v.metrics.IncrementMessageRejected()
		return fmt.Errorf("%w: %q", ErrUnknownAction, msg.Action)
	}

	return nil
}

func (h *liveHandler) handleHTTP(w http.ResponseWriter, r *http.Request) {
	v := h.v

	// Handle HEAD request for capability check
	if r.Method == http.MethodHead {
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	p, sessionID, isNew, err := h.sessionPage(r, r.Method == http.MethodGet)
	if err != nil {
		log.Printf("Failed to create session: %v", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	// Set session cookie if this is a new session
	if isNew {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sessionID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	// A GET mounts a fresh page in place of the session's previous one
	if r.Method == http.MethodGet {
		p.outbox.drain()
		writeJSON(w, v.mount(p))
		return
	}

	limit := int64(v.config.MaxTextLength) + messageOverhead
	data, err := readBody(r, limit)
	if err != nil {
		v.metrics.IncrementMessageRejected()
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	// One request is one edit signal, so HTTP edits are not debounced
	var editErr error
	err = h.dispatch(p, data, func(text string) {
		_, editErr = v.edit(p, text)
	})
	if err == nil {
		err = editErr
	}
	if err != nil {
		log.Printf("Action error: %v", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, vdom.Patch{Operations: p.outbox.drain()})
}

// sessionPage returns the page of the request's session, creating both
// when the session is missing or expired. A remount deletes the existing
// session and closes its page before starting a new one.
func (h *liveHandler) sessionPage(r *http.Request, remount bool) (*page, string, bool, error) {
	v := h.v

	if sessionID := getSessionID(r); sessionID != "" {
		if remount {
			v.sessions.DeleteSession(sessionID)
		} else if s, ok := v.sessions.GetSession(sessionID); ok {
			return s.Value, s.ID, false, nil
		}
	}

	box := &outbox{}
	p, err := v.newPage(box.push)
	if err != nil {
		return nil, "", false, err
	}
	p.outbox = box

	s, err := v.sessions.CreateSession(p)
	if err != nil {
		v.closePage(p)
		return nil, "", false, err
	}
	v.metrics.IncrementCustomCounter("http_sessions")
	return p, s.ID, true, nil
}

// outbox collects the patches of an HTTP page until the next response
type outbox struct {
	mu  sync.Mutex
	ops []vdom.Operation
}

func (o *outbox) push(patch vdom.Patch) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, patch.Operations...)
	return nil
}

// drain returns every collected operation in commit order and empties the box
func (o *outbox) drain() []vdom.Operation {
	o.mu.Lock()
	defer o.mu.Unlock()
	ops := o.ops
	o.ops = nil
	if ops == nil {
		ops = []vdom.Operation{}
	}
	return ops
}

// getSessionID extracts session ID from cookie or header
func getSessionID(r *http.Request) string {
	// Try cookie first
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return r.Header.Get(SessionHeader)
}

// statusFor maps an error to the HTTP status it is reported with
func statusFor(err error) int {
	var fieldErr FieldError
	var multiErr MultiError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.Is(err, ErrTextTooLong):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, memory.ErrLimitExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUnknownAction),
		errors.As(err, &fieldErr),
		errors.As(err, &multiErr),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeFrameWebSocket writes a frame to a WebSocket connection (internal protocol)
func writeFrameWebSocket(conn *websocket.Conn, frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
