// Command echo-client connects to an echo-server and sends each line of
// stdin input as a reliable "echo" event as soon as it is read, printing
// replies as they arrive.
package main

import (
	"bufio"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/philip727/nautilus-sockets/delivery"
	"github.com/philip727/nautilus-sockets/logging"
	"github.com/philip727/nautilus-sockets/socket"
)

const version = "1.0.0"

func main() {
	var localAddr, serverAddr string

	root := &cobra.Command{
		Use:   "echo-client",
		Short: "Connect to a nautilus-sockets echo server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(localAddr, serverAddr)
		},
	}
	root.Flags().StringVarP(&localAddr, "listen", "l", "0.0.0.0:0", "local address to bind")
	root.Flags().StringVarP(&serverAddr, "server", "s", "127.0.0.1:7777", "server address to connect to")

	if err := root.Execute(); err != nil {
		logging.Fatal("%v", err)
	}
}

func run(localAddr, serverAddr string) error {
	logging.Banner("nautilus-sockets echo client", version)

	cli, err := socket.NewClient(localAddr)
	if err != nil {
		return err
	}
	if err := cli.ConnectTo(serverAddr); err != nil {
		return err
	}
	logging.Success("connected to %s", serverAddr)

	cli.On("echo", func(c *socket.Client, source string, payload []byte) {
		logging.Info("reply from %s: %s", source, string(payload))
	})

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := cli.Send("echo", []byte(line), delivery.Reliable); err != nil {
				logging.Warn("send failed: %v", err)
			}
		default:
			cli.Poll()
			cli.RunEvents()
			for _, f := range cli.Faults() {
				logging.Warn("socket fault (%s): %s", f.Kind, f.Detail)
			}
			time.Sleep(time.Millisecond)
		}
	}
}
