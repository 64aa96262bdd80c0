package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/larsks/usblrb/internal/ch341"
	_ "github.com/larsks/usblrb/internal/logsetup"
	"github.com/larsks/usblrb/internal/lrb"
	"github.com/larsks/usblrb/internal/version"
)

var (
	versionFlag = pflag.Bool("version", false, "Show version and exit")
	helpFlag    = pflag.BoolP("help", "h", false, "Show help")
	deviceFlag  = pflag.IntP("device", "d", -1, "Zero-based CH341A device index")
	statusFlag  = pflag.StringP("status", "s", "", "Relay status byte to set (0-255)")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "A command line tool for controlling ABACOM USB-LRB relay boards.\n\n")

	fmt.Fprintf(os.Stderr, "Options:\n")
	pflag.PrintDefaults()

	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  %s                 # List attached CH341A devices\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s -d 0            # Probe device 0 and show its relay status\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s -d 0 -s 41      # Set relays 0, 3 and 5 on device 0\n", os.Args[0])
}

func main() {
	pflag.Parse()

	if *versionFlag {
		version.ShowVersion()
		os.Exit(0)
	}

	if *helpFlag {
		usage()
		os.Exit(0)
	}

	if *deviceFlag < 0 {
		if err := listDevices(); err != nil {
			log.Fatalf("Failed to list devices: %v", err)
		}
		fmt.Fprintln(os.Stderr, "")
		usage()
		os.Exit(0)
	}

	// Validate the status argument before touching the hardware.
	var status uint8
	haveStatus := *statusFlag != ""
	if haveStatus {
		var err error
		status, err = lrb.ParseStatus(*statusFlag)
		if err != nil {
			log.Fatalf("Invalid status: %v", err)
		}
	}

	board, err := openBoard(*deviceFlag)
	if err != nil {
		log.Fatalf("Failed to open device %d: %v", *deviceFlag, err)
	}
	defer board.Close() //nolint:errcheck

	if haveStatus {
		err = setStatus(board, status)
	} else {
		err = probeBoard(board)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func listDevices() error {
	devices, err := ch341.ListDevices()
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("No CH341A devices found")
		return nil
	}

	fmt.Printf("CH341A devices (%d total):\n", len(devices))
	for _, dev := range devices {
		fmt.Printf("  %s\n", dev)
	}

	return nil
}

func openBoard(index int) (*lrb.Board, error) {
	transport, err := ch341.OpenDevice(index)
	if err != nil {
		return nil, err
	}

	return lrb.NewBoard(ch341.NewPort(transport), false), nil
}

// probeBoard runs the self test and reports the current relay status.
func probeBoard(board *lrb.Board) error {
	if err := board.SelfTest(); err != nil {
		if errors.Is(err, lrb.ErrNotRelayBoard) {
			return fmt.Errorf("device %d does not respond like a USB-LRB: %v", *deviceFlag, err)
		}
		return fmt.Errorf("self test failed: %v", err)
	}

	status, err := board.GetRelays()
	if err != nil {
		return fmt.Errorf("failed to read relay status: %v", err)
	}

	printStatus(status)
	return nil
}

func setStatus(board *lrb.Board, status uint8) error {
	if err := board.SetRelays(status); err != nil {
		return fmt.Errorf("failed to set relays: %v", err)
	}

	// Read the status back from the shift register.
	got, err := board.GetRelays()
	if err != nil {
		return fmt.Errorf("failed to verify relay status: %v", err)
	}
	if got != status {
		return fmt.Errorf("relay status readback mismatch: set %d, got %d", status, got)
	}

	printStatus(got)
	return nil
}

func printStatus(status uint8) {
	fmt.Printf("Relay status: %d\n", status)
	for i := 0; i < lrb.NUMBER_OF_RELAYS; i++ {
		onoff := "off"
		if status&(1<<i) != 0 {
			onoff = "on"
		}
		fmt.Printf("  Relay %d: %s\n", i, onoff)
	}
}
