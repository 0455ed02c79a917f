// Command dealposter renders daily fast-food deal posters and delivers them
// to chat groups on a schedule.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	_ "github.com/dealposter/docs" // swagger docs
)

// @title Deal Poster API
// @version 1.0
// @description Daily fast-food deal posters: fetch offers, render one poster per brand and deliver them to chat groups on a schedule.

// @contact.name API Support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter your JWT token with the `Bearer ` prefix, e.g. "Bearer eyJhbGci..."

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description Enter your API key

var configPath string

var rootCmd = &cobra.Command{
	Use:   "dealposter",
	Short: "Daily fast-food deal poster generator",
	Long: `dealposter fetches today's fast-food offers, renders one poster per brand and
delivers the posters to the configured chat groups every morning.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (defaults to CONFIG_FILE)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
