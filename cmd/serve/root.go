package serve

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cmdUtil "github.com/ValentinKolb/eKV/cmd/util"
	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the eKV server",
		Long:    `Start the eKV server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is EKV_<flag> (e.g. EKV_READ_CHUNK_SIZE=1024)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, common.DefaultEndpoint, cmdUtil.WrapString("The address on which the server will listen (e.g. 127.0.0.1:8080, /tmp/ekv.sock, ...)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "read-chunk-size"
	ServeCmd.PersistentFlags().Int(key, common.DefaultReadChunkSize, cmdUtil.WrapString("Size of the buffer used for a single read from a client socket (in bytes)"))

	key = "max-line-size"
	ServeCmd.PersistentFlags().Int(key, common.DefaultMaxLineSize, cmdUtil.WrapString("Longest command accepted before the connection is dropped (in bytes)"))

	key = "events"
	ServeCmd.PersistentFlags().Int(key, common.DefaultEventsCapacity, cmdUtil.WrapString("Maximum number of readiness events handled per poll"))

	key = "reads-per-event"
	ServeCmd.PersistentFlags().Int(key, common.DefaultReadsPerEvent, cmdUtil.WrapString("Read calls for one connection before the other ready connections are served"))

	key = "max-pending"
	ServeCmd.PersistentFlags().Int(key, common.DefaultMaxPending, cmdUtil.WrapString("Unsent response bytes after which reading from a connection is paused (in bytes)"))

	key = "strict-hex"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Reject SET requests with malformed hex values instead of storing an empty value"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address of the prometheus metrics endpoint (e.g. 127.0.0.1:9090), empty disables it"))

	cmdUtil.SetupTransportFlags(ServeCmd)
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.ReadChunkSize = viper.GetInt("read-chunk-size")
	serveCmdConfig.MaxLineSize = viper.GetInt("max-line-size")
	serveCmdConfig.EventsCapacity = viper.GetInt("events")
	serveCmdConfig.ReadsPerEvent = viper.GetInt("reads-per-event")
	serveCmdConfig.MaxPendingBytes = viper.GetInt("max-pending")
	serveCmdConfig.StrictHex = viper.GetBool("strict-hex")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.Transport = cmdUtil.GetTransportConfig()

	// fail early on an invalid level
	if _, err := common.ParseLogLevel(serveCmdConfig.LogLevel); err != nil {
		return err
	}

	return nil
}

// run starts the eKV server and blocks until it receives SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {

	// parse the codec
	c, err := cmdUtil.GetCodec()
	if err != nil {
		return err
	}

	// parse the transport
	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		c,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serv.Serve(ctx)
}

// initConfig reads in .env files and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(cmdUtil.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
