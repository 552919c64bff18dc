package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dom/duo-chat/internal/websocket"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	apiURL := "http://localhost:5001"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "users":
		usersCmd(apiURL, args)
	case "chat":
		chatCmd(apiURL, args)
	case "listen":
		listenCmd(apiURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Chat Simulator - Development tool for exercising a running server

USAGE:
  simulator <command> [options]

COMMANDS:
  users     Sign up fake users you can log in as
  chat      Sign up two users, connect one and send it messages from the other
  listen    Log in and print realtime events until interrupted
  help      Show this help message

ENVIRONMENT:
  API_URL   Backend base URL (default: http://localhost:5001)

EXAMPLES:
  # Create 5 users that show up in everyone's contact list
  simulator users --count=5

  # Send 20 messages and check every one was pushed
  simulator chat --messages=20 --interval=50ms

  # Watch presence and messages for an existing account
  simulator listen --email=me@example.com --password=secret`)
}

func usersCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("users", flag.ExitOnError)
	count := fs.Int("count", 3, "Number of fake users to create")
	password := fs.String("password", "testpassword123", "Password for every created user")
	fs.Parse(args)

	if *count < 1 {
		fmt.Println("Error: --count must be at least 1")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)
	fmt.Printf("Creating %d users:\n", *count)
	for i := 1; i <= *count; i++ {
		user, _, err := client.SignupUser(fmt.Sprintf("Sim%d", i), *password)
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED: %v\n", i, *count, err)
			os.Exit(1)
		}
		fmt.Printf("  [%d/%d] %s <%s>\n", i, *count, user.FullName, user.Email)
	}
	fmt.Printf("\nAll users share the password %q\n", *password)
}

func chatCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	messages := fs.Int("messages", 5, "Number of messages to send")
	interval := fs.Duration("interval", 200*time.Millisecond, "Delay between messages")
	fs.Parse(args)

	client := NewAPIClient(apiURL)

	fmt.Println("=== Chat Simulator ===")
	fmt.Print("Creating sender and receiver... ")
	sender, senderToken, err := client.SignupUser("Sender", "testpassword123")
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	receiver, receiverToken, err := client.SignupUser("Receiver", "testpassword123")
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")

	fmt.Print("Connecting receiver... ")
	conn, err := client.Connect(receiverToken)
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Println("OK")

	received := make(chan Message, *messages)
	go func() {
		defer close(received)
		for {
			event, err := ReadEvent(conn)
			if err != nil {
				return
			}
			if event.Type != websocket.MessageTypeNewMessage {
				continue
			}
			var msg Message
			if json.Unmarshal(event.Payload, &msg) == nil {
				received <- msg
			}
		}
	}()

	for i := 1; i <= *messages; i++ {
		text := fmt.Sprintf("message %d from %s", i, sender.FullName)
		if _, err := client.SendMessage(senderToken, receiver.ID, text); err != nil {
			fmt.Printf("  [%d/%d] FAILED: %v\n", i, *messages, err)
			os.Exit(1)
		}
		fmt.Printf("  [%d/%d] sent\n", i, *messages)
		time.Sleep(*interval)
	}

	delivered := 0
	timeout := time.After(5 * time.Second)
wait:
	for delivered < *messages {
		select {
		case msg, ok := <-received:
			if !ok {
				break wait
			}
			delivered++
			fmt.Printf("  pushed: %q\n", msg.Text)
		case <-timeout:
			break wait
		}
	}

	history, err := client.History(receiverToken, sender.ID)
	if err != nil {
		fmt.Printf("Failed to load history: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("Stored: %d  Pushed: %d  Sent: %d\n", len(history), delivered, *messages)
	if delivered != *messages || len(history) != *messages {
		os.Exit(1)
	}
}

func listenCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("listen", flag.ExitOnError)
	email := fs.String("email", "", "Account email (required)")
	password := fs.String("password", "", "Account password (required)")
	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: --email and --password are required")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)
	user, token, err := client.Login(*email, *password)
	if err != nil {
		fmt.Printf("Login failed: %v\n", err)
		os.Exit(1)
	}

	conn, err := client.Connect(token)
	if err != nil {
		fmt.Printf("Connect failed: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Printf("Listening as %s (%s). Press Ctrl+C to stop.\n", user.FullName, user.ID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	go func() {
		<-quit
		conn.Close()
	}()

	for {
		event, err := ReadEvent(conn)
		if err != nil {
			fmt.Printf("Connection closed: %v\n", err)
			return
		}
		fmt.Printf("%s %s %s\n", time.UnixMilli(event.Timestamp).Format(time.TimeOnly), event.Type, event.Payload)
	}
}
