package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/salle-pos/api/internal/client"
)

// watch is a terminal client that logs in, keeps a live view of the orders
// relevant to the given role, and prints a line whenever new work arrives.
// With -push it uses the WebSocket stream instead of polling.
func main() {
	baseURL := flag.String("url", "http://localhost:8081", "API base URL")
	username := flag.String("username", "", "Username to log in with")
	password := flag.String("password", "", "Password to log in with")
	usePush := flag.Bool("push", false, "Use WebSocket push instead of polling")
	flag.Parse()

	_ = godotenv.Load()

	if *username == "" || *password == "" {
		log.Fatal("both -username and -password are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.New(*baseURL)
	login, err := api.Login(ctx, *username, *password)
	if err != nil {
		log.Fatalf("login: %v", err)
	}
	role := login.User.Role
	log.Printf("logged in as %s (%s), refresh interval %s", login.User.Username, role, client.PollInterval(role))

	orders := client.NewOrderCache()
	dishes := client.NewDishCache()

	var synchronizer client.Synchronizer
	if *usePush {
		pusher := client.NewPusher(api, orders, dishes, role, *baseURL, login.AccessToken)
		pusher.OnAttention(func(count int) {
			log.Printf("ding! %d order(s) need your attention", count)
		})
		synchronizer = pusher
	} else {
		poller := client.NewPoller(api, orders, role)
		poller.OnAttention(func(count int) {
			log.Printf("ding! %d order(s) need your attention", count)
		})
		synchronizer = poller
	}

	done := make(chan struct{})
	go func() {
		synchronizer.Run(ctx)
		close(done)
	}()

	<-ctx.Done()
	<-done

	// Late responses were discarded on cancel; print the last known view.
	for _, o := range orders.List() {
		log.Printf("%s  %-20s  %s", o.OrderNumber, o.Status, o.TotalAmount.StringFixed(2))
	}
}
