package kv

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const consolePrompt = "Enter command (SET key value, GET key, BYE to exit): "

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive session with the server",
	Long: `Reads commands from stdin and prints the decoded server response.
Values of SET commands are compressed before they are sent. The session ends
with BYE or when the server closes the connection.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runConsole(os.Stdin, cmd.OutOrStdout())
	},
}

// runConsole executes the lines of in until BYE, the end of input or the server closing the connection
func runConsole(in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Connected to the server at %s\n", viper.GetString("endpoint"))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, consolePrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if common.ParseCommand([]byte(line)).CmdType == common.CmdTBye {
			if err := rpcStore.Bye(); err != nil {
				return err
			}
			fmt.Fprintln(out, "Exiting...")
			return nil
		}

		resp, err := rpcStore.Exec(line)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out, "Connection closed by server.")
			return nil
		}
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "Server response: %s", resp)
		if !strings.HasSuffix(resp, "\n") {
			fmt.Fprintln(out)
		}
	}
}
