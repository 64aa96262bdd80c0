package ctl

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/larsks/usblrb/internal/lrb"
	"github.com/larsks/usblrb/internal/version"
)

// APIResponse represents the generic API response format.
type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// StatusResponse represents the board status response.
type StatusResponse struct {
	Status   string `json:"status"`
	Relays   uint8  `json:"relays"`
	Count    uint   `json:"count"`
	Switches []bool `json:"switches"`
}

// SwitchStateResponse represents a single switch status response.
type SwitchStateResponse struct {
	Status string `json:"status"`
	Switch string `json:"switch"`
	State  bool   `json:"state"`
}

// SwitchRequest represents a request to control a switch.
type SwitchRequest struct {
	State string `json:"state"`
}

// StatusRequest represents a request to set the packed status byte.
type StatusRequest struct {
	Status uint8 `json:"status"`
}

// HTTPClient interface for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Handler implements the usblrbctl commands.
type Handler struct {
	config     *Config
	httpClient HTTPClient
	stdout     io.Writer
	stderr     io.Writer
}

// NewHandler creates a new usblrbctl handler.
func NewHandler(cfg *Config) *Handler {
	return &Handler{
		config:     cfg,
		httpClient: &http.Client{},
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
}

// Execute runs the given command.
func (h *Handler) Execute(command string, args []string) error {
	switch command {
	case "version":
		version.ShowVersion()
		return nil
	case "help":
		h.showHelp()
		return nil
	case "status":
		return h.cmdStatus(args)
	case "on":
		return h.cmdSwitch(args, "on")
	case "off":
		return h.cmdSwitch(args, "off")
	case "set":
		return h.cmdSet(args)
	case "selftest":
		return h.cmdSelfTest(args)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func (h *Handler) showHelp() {
	//nolint:errcheck
	fmt.Fprintf(h.stdout, `usblrbctl - Command line tool for controlling USB-LRB relays

Usage: usblrbctl [flags] <command> [arguments]

Commands:
  status [relay]       Show all relays or one relay
  on <relay|all>       Turn on a relay
  off <relay|all>      Turn off a relay
  set <status>         Set all relays from a status byte (0-255)
  selftest             Run the board self test
  help                 Show this help
  version              Show version information

Flags:
  --config string      Config file to use (default "%s")
  --server-url string  API server URL (default "%s")
  --version            Show version and exit
`, getDefaultConfigFile(), defaultServerURL)
}

func (h *Handler) cmdStatus(args []string) error {
	switch len(args) {
	case 0:
		return h.showBoardStatus()
	case 1:
		return h.showSwitchStatus(args[0])
	default:
		return fmt.Errorf("status command requires zero or one relay argument")
	}
}

func (h *Handler) showBoardStatus() error {
	resp, err := h.makeAPIRequest(http.MethodGet, "/status", nil)
	if err != nil {
		return err
	}

	var status StatusResponse
	if err := json.Unmarshal(resp, &status); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}

	fmt.Fprintf(h.stdout, "Relays (%d total, status %d):\n", status.Count, status.Relays) //nolint:errcheck
	for i, state := range status.Switches {
		onoff := "off"
		if state {
			onoff = "on"
		}
		fmt.Fprintf(h.stdout, "  %d: %s\n", i, onoff) //nolint:errcheck
	}

	return nil
}

func (h *Handler) showSwitchStatus(name string) error {
	resp, err := h.makeAPIRequest(http.MethodGet, "/switch/"+name, nil)
	if err != nil {
		return err
	}

	var state SwitchStateResponse
	if err := json.Unmarshal(resp, &state); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}

	onoff := "off"
	if state.State {
		onoff = "on"
	}
	fmt.Fprintf(h.stdout, "Relay: %s\n", state.Switch) //nolint:errcheck
	fmt.Fprintf(h.stdout, "Status: %s\n", onoff)       //nolint:errcheck

	return nil
}

func (h *Handler) cmdSwitch(args []string, state string) error {
	if len(args) != 1 {
		return fmt.Errorf("%s command requires exactly one relay argument", state)
	}

	name := args[0]
	reqBody, err := json.Marshal(SwitchRequest{State: state})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if _, err := h.makeAPIRequest(http.MethodPost, "/switch/"+name, reqBody); err != nil {
		return err
	}

	fmt.Fprintf(h.stdout, "Relay turned %s: %s\n", state, name) //nolint:errcheck
	return nil
}

func (h *Handler) cmdSet(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("set command requires exactly one status argument")
	}

	status, err := lrb.ParseStatus(args[0])
	if err != nil {
		return err
	}

	reqBody, err := json.Marshal(StatusRequest{Status: status})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if _, err := h.makeAPIRequest(http.MethodPost, "/status", reqBody); err != nil {
		return err
	}

	fmt.Fprintf(h.stdout, "Relays set to %d\n", status) //nolint:errcheck
	return nil
}

func (h *Handler) cmdSelfTest(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("selftest command takes no arguments")
	}

	if _, err := h.makeAPIRequest(http.MethodPost, "/selftest", nil); err != nil {
		return err
	}

	fmt.Fprintln(h.stdout, "Self test passed") //nolint:errcheck
	return nil
}

func (h *Handler) makeAPIRequest(method, path string, body []byte) ([]byte, error) {
	url := h.config.ServerURL + path

	var req *http.Request
	var err error

	if body != nil {
		req, err = http.NewRequest(method, url, strings.NewReader(string(body)))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Prefer the API error message if the body parses as one.
		var apiResp APIResponse
		if err := json.Unmarshal(respBody, &apiResp); err == nil && apiResp.Message != "" {
			return nil, fmt.Errorf("API error: %s", apiResp.Message)
		}
		return nil, fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}

	return respBody, nil
}
