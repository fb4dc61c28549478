package data

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aaronland/go-roster"
	"github.com/apex/log"
)

// Notifier delivers user-visible error messages to whatever is presenting loaded datasets.
type Notifier interface {
	Error(ctx context.Context, msg string)
}

// NotifierInitializationFunc creates a new Notifier from a URI.
type NotifierInitializationFunc func(ctx context.Context, uri string) (Notifier, error)

var notifier_roster roster.Roster

func init() {
	ctx := context.Background()
	RegisterNotifier(ctx, "log", NewLogNotifier)
	RegisterNotifier(ctx, "null", NewNullNotifier)
}

// RegisterNotifier registers 'init_func' as the constructor for Notifier URIs using 'scheme'.
func RegisterNotifier(ctx context.Context, scheme string, init_func NotifierInitializationFunc) error {

	err := ensureNotifierRoster()

	if err != nil {
		return err
	}

	return notifier_roster.Register(ctx, scheme, init_func)
}

func ensureNotifierRoster() error {

	if notifier_roster == nil {

		r, err := roster.NewDefaultRoster()

		if err != nil {
			return err
		}

		notifier_roster = r
	}

	return nil
}

// NewNotifier returns a new Notifier for 'uri', whose scheme must have been registered with RegisterNotifier.
func NewNotifier(ctx context.Context, uri string) (Notifier, error) {

	u, err := url.Parse(uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to parse URI, %w", err)
	}

	err = ensureNotifierRoster()

	if err != nil {
		return nil, err
	}

	i, err := notifier_roster.Driver(ctx, u.Scheme)

	if err != nil {
		return nil, fmt.Errorf("Failed to find notifier for '%s', %w", u.Scheme, err)
	}

	init_func := i.(NotifierInitializationFunc)
	return init_func(ctx, uri)
}

// NotifierSchemes returns the list of registered Notifier URI schemes.
func NotifierSchemes() []string {

	ctx := context.Background()
	schemes := []string{}

	err := ensureNotifierRoster()

	if err != nil {
		return schemes
	}

	for _, dr := range notifier_roster.Drivers(ctx) {
		scheme := fmt.Sprintf("%s://", strings.ToLower(dr))
		schemes = append(schemes, scheme)
	}

	sort.Strings(schemes)
	return schemes
}

// LogNotifier writes messages with apex/log.
type LogNotifier struct {
	Notifier
	logger log.Interface
}

// NewLogNotifier returns a new LogNotifier configured by 'uri', which takes the form:
//
//	log://?target={stderr|stdout}
//
// The default target is stderr.
func NewLogNotifier(ctx context.Context, uri string) (Notifier, error) {

	u, err := url.Parse(uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to parse URI, %w", err)
	}

	var wr io.Writer

	switch u.Query().Get("target") {
	case "", "stderr":
		wr = os.Stderr
	case "stdout":
		wr = os.Stdout
	default:
		return nil, fmt.Errorf("Invalid 'target' parameter")
	}

	logger := &log.Logger{
		Handler: NewNotifierHandler(wr),
		Level:   log.InfoLevel,
	}

	n := &LogNotifier{
		logger: logger,
	}

	return n, nil
}

// NewLogNotifierWithLogger returns a LogNotifier that writes to 'logger'.
func NewLogNotifierWithLogger(logger log.Interface) Notifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Error(ctx context.Context, msg string) {
	n.logger.Error(msg)
}

// NotifierHandler formats apex/log entries as "{timestamp} {level} {message}" lines.
type NotifierHandler struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewNotifierHandler returns a NotifierHandler writing to 'wr'.
func NewNotifierHandler(wr io.Writer) *NotifierHandler {
	return &NotifierHandler{writer: wr}
}

// HandleLog implements the log.Handler interface
func (h *NotifierHandler) HandleLog(e *log.Entry) error {

	h.mu.Lock()
	defer h.mu.Unlock()

	timestamp := e.Timestamp.Format(time.DateTime)
	level := strings.ToUpper(e.Level.String())

	_, err := fmt.Fprintf(h.writer, "%s %s %s\n", timestamp, level, e.Message)
	return err
}

// NullNotifier discards every message.
type NullNotifier struct {
	Notifier
}

// NewNullNotifier returns a new NullNotifier. 'uri' takes the form null://
func NewNullNotifier(ctx context.Context, uri string) (Notifier, error) {
	n := &NullNotifier{}
	return n, nil
}

func (n *NullNotifier) Error(ctx context.Context, msg string) {
	// pass
}
