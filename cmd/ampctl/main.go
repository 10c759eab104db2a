package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dougsko/ampd/pkg/client"
	"golang.org/x/term"
)

var (
	socketPath  = flag.String("socket", "/tmp/ampd.sock", "Unix socket path")
	command     = flag.String("cmd", "", "Raw command to send (e.g., 'STATUS', 'BAND:14MHZ,A')")
	askPassword = flag.Bool("p", false, "Prompt for the amplifier password when connecting")
)

func main() {
	flag.Parse()

	if *socketPath == "" {
		fmt.Fprintf(os.Stderr, "Socket path is required\n")
		os.Exit(1)
	}

	c := client.NewSocketClient(*socketPath)

	if *command != "" {
		os.Exit(sendRaw(c, *command))
	}

	args := flag.Args()
	if len(args) == 0 {
		showHelp()
		return
	}

	if err := run(c, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// sendRaw sends a protocol line and prints the JSON response
func sendRaw(c *client.SocketClient, line string) int {
	response, err := c.SendCommand(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("%s\n", response.String())
	if !response.Success {
		return 1
	}
	return 0
}

func run(c *client.SocketClient, args []string) error {
	switch strings.ToLower(args[0]) {
	case "status":
		status, err := c.GetStatus()
		if err != nil {
			return err
		}
		fmt.Print(formatStatus(status, time.Now()))
		return nil

	case "connect":
		host, port, err := parseTarget(args[1:])
		if err != nil {
			return err
		}
		password := ""
		if *askPassword {
			if password, err = readPassword(); err != nil {
				return err
			}
		}
		if err := c.Connect(host, port, password); err != nil {
			return err
		}
		fmt.Println("Connecting...")
		return nil

	case "disconnect":
		return c.Disconnect()

	case "test":
		host, port, err := parseTarget(args[1:])
		if err != nil {
			return err
		}
		res, err := c.TestConnection(host, port)
		if err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("connection test failed: %s", res.Error)
		}
		fmt.Printf("OK: %s\n", res.Banner)
		return nil

	case "band":
		if len(args) < 2 {
			return fmt.Errorf("usage: band <code> [antenna]")
		}
		antenna := ""
		if len(args) > 2 {
			antenna = args[2]
		}
		return c.SelectBand(args[1], antenna)

	case "antenna":
		if len(args) < 2 {
			return fmt.Errorf("usage: antenna <A|B|C>")
		}
		return c.SelectAntenna(args[1])

	case "power":
		if len(args) < 2 {
			return fmt.Errorf("usage: power <H|M|L>")
		}
		return c.SetPower(args[1])

	case "operate":
		return c.Operate()

	case "standby":
		return c.Standby()

	case "clear":
		return c.ClearTrip()

	case "send":
		if len(args) < 2 {
			return fmt.Errorf("usage: send <token>")
		}
		return c.Send(strings.Join(args[1:], " "))

	case "log":
		limit := 20
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid count %q", args[1])
			}
			limit = n
		}
		entries, err := c.GetLog(limit)
		if err != nil {
			return err
		}
		fmt.Print(formatLog(entries, time.Now()))
		return nil

	default:
		// Anything else is a raw protocol line
		if code := sendRaw(c, strings.Join(args, " ")); code != 0 {
			os.Exit(code)
		}
		return nil
	}
}

// parseTarget accepts "", "host" or "host port" / "host:port"
func parseTarget(args []string) (string, int, error) {
	if len(args) == 0 {
		return "", 0, nil
	}

	host := args[0]
	portStr := ""
	if len(args) > 1 {
		portStr = args[1]
	} else if h, p, found := strings.Cut(host, ":"); found {
		host, portStr = h, p
	}
	if portStr == "" {
		return host, 0, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}

func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Amplifier password: ")

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}

	// Piped input
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func showHelp() {
	fmt.Println("ampctl - amplifier daemon control tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s [options] <command> [args]\n", os.Args[0])
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -socket <path>    Unix socket path (default: /tmp/ampd.sock)")
	fmt.Println("  -cmd <line>       Send a raw protocol line and print the JSON reply")
	fmt.Println("  -p                Prompt for the password on connect")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  status                    Show connection and front panel state")
	fmt.Println("  connect [host [port]]     Connect (default: configured amplifier)")
	fmt.Println("  disconnect                Disconnect")
	fmt.Println("  test [host [port]]        Probe an amplifier without connecting")
	fmt.Println("  band <code> [antenna]     Select band, e.g. band 14MHZ A")
	fmt.Println("  antenna <A|B|C>           Select antenna on the current band")
	fmt.Println("  power <H|M|L>             Select power level")
	fmt.Println("  operate | standby         Switch operating mode")
	fmt.Println("  clear                     Clear a protection trip")
	fmt.Println("  send <token>              Send a raw device command")
	fmt.Println("  log [n]                   Show the last n log entries")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  %s -p connect 192.168.1.50\n", os.Args[0])
	fmt.Printf("  %s band 7MHZ B\n", os.Args[0])
	fmt.Printf("  echo 'STATUS' | nc -U /tmp/ampd.sock\n")
}
