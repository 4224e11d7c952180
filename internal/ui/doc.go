// Package ui provides terminal UI components for the cloudia commands.
//
// This package uses Bubble Tea, Bubbles and Lipgloss. Most output follows
// a "print and exit" pattern:
//
//   - Header: command banner showing the operation and its parameters
//   - Result: success, failure or warning box with ordered details
//   - Confirm: yes/no prompt in a warning box
//   - Printer: writes the above to any io.Writer
//
// The exception is WatchModel, an interactive Bubble Tea program showing
// the live feed as a table of epochs with a battery gauge for the most
// recent uplink:
//
//	records, _ := server.Dial(ctx, url)
//	if ui.IsInteractive() {
//	    _, err := tea.NewProgram(ui.NewWatchModel(url, records), tea.WithAltScreen()).Run()
//	    return err
//	}
//	for rec := range records {
//	    for _, line := range ui.FormatRecordLines(rec) {
//	        fmt.Println(line)
//	    }
//	}
//
// # Logging Integration
//
// This package expects logging to be controlled via the CLOUDIA_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, so the
// curated UI output is displayed cleanly.
package ui
