package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lemonberrylabs/numchain/pkg/api"
	grpcapi "github.com/lemonberrylabs/numchain/pkg/api/grpc"
	"github.com/lemonberrylabs/numchain/pkg/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST and gRPC servers",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP server port (default 8787, env PORT)")
	serveCmd.Flags().Int("grpc-port", 0, "gRPC server port (default 8788, env GRPC_PORT)")
	serveCmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	serveCmd.Flags().String("chains-dir", "", "Directory of chain YAML/JSON descriptors to load (env CHAINS_DIR)")
	serveCmd.Flags().Bool("access-log", false, "Log every HTTP request (env ACCESS_LOG)")
}

func runServe(cmd *cobra.Command, args []string) error {
	port := envOrDefault("PORT", "8787")
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		port = fmt.Sprintf("%d", v)
	}

	grpcPort := envOrDefault("GRPC_PORT", "8788")
	if v, _ := cmd.Flags().GetInt("grpc-port"); v != 0 {
		grpcPort = fmt.Sprintf("%d", v)
	}

	host := envOrDefault("HOST", "0.0.0.0")
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		host = v
	}

	chainsDir := os.Getenv("CHAINS_DIR")
	if v, _ := cmd.Flags().GetString("chains-dir"); v != "" {
		chainsDir = v
	}

	accessLog := os.Getenv("ACCESS_LOG") == "true"
	if v, _ := cmd.Flags().GetBool("access-log"); v {
		accessLog = true
	}

	addr := fmt.Sprintf("%s:%s", host, port)
	grpcAddr := fmt.Sprintf("%s:%s", host, grpcPort)

	s := store.New()
	var opts []api.Option
	if accessLog {
		opts = append(opts, api.WithAccessLog(os.Stderr))
	}
	server := api.New(s, opts...)

	if chainsDir != "" {
		log.Printf("Loading chains directory: %s", chainsDir)
		if err := server.LoadDir(chainsDir); err != nil {
			log.Printf("Warning: failed to load chains directory: %v", err)
		}
	}

	grpcServer := grpcapi.New(s)
	go func() {
		log.Printf("gRPC server listening on %s", grpcAddr)
		if err := grpcServer.Serve(grpcAddr); err != nil {
			log.Fatalf("gRPC server error: %v", err)
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down numchain...")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("numchain listening on %s", addr)
	return server.Listen(addr)
}
