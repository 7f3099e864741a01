/*
Package cli provides shared helpers for the gatekeeper command: output
formatters, typed command errors and signal handling.

Output formatting:

Command results render as text, JSON or CSV. CSV output requires the result
to implement Tabular, which audit query results do:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Signal handling:

The daemon blocks on WaitForShutdown; one-shot commands that touch the
stores wrap their context with SetupSignalHandler so an interrupt cancels
in-flight queries:

	ctx := cli.SetupSignalHandler(context.Background())
*/
package cli
