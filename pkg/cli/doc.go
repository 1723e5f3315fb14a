/*
Package cli provides helpers shared by the relay command.

Errors:

ConfigError and CommandError wrap failures so the command can report them
consistently; ExitCode maps any error to the process exit status.

Output Formatting:

Commands that print results accept --output text|json:

	format, err := cli.ParseOutputFormat(flag)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result)

A Table renders as aligned columns in text mode and as a list of objects
in JSON mode.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
