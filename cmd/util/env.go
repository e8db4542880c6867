package util

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// GetEnvWithDefault returns the value of an environment variable or a default value if not set
func GetEnvWithDefault(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvIntWithDefault returns the value of an environment variable as int or a default value if not set
func GetEnvIntWithDefault(envVar string, defaultValue int) int {
	if value := os.Getenv(envVar); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// PreRunEWithEnvVars creates a PreRunE function that fills connection
// parameters from DM* environment variables when the corresponding
// flags weren't explicitly set, then validates the required ones.
func PreRunEWithEnvVars(hostPtr *string, portPtr *int, userPtr, passwordPtr, schemaPtr *string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if GetEnvWithDefault("DMHOST", "") != "" && !cmd.Flags().Changed("host") {
			*hostPtr = GetEnvWithDefault("DMHOST", "")
		}
		if GetEnvIntWithDefault("DMPORT", 0) != 0 && !cmd.Flags().Changed("port") {
			*portPtr = GetEnvIntWithDefault("DMPORT", 0)
		}
		if GetEnvWithDefault("DMUSER", "") != "" && !cmd.Flags().Changed("user") {
			*userPtr = GetEnvWithDefault("DMUSER", "")
		}
		if GetEnvWithDefault("DMPASSWORD", "") != "" && !cmd.Flags().Changed("password") {
			*passwordPtr = GetEnvWithDefault("DMPASSWORD", "")
		}
		if schemaPtr != nil && GetEnvWithDefault("DMSCHEMA", "") != "" && !cmd.Flags().Changed("schema") {
			*schemaPtr = GetEnvWithDefault("DMSCHEMA", "")
		}

		if *userPtr == "" {
			return fmt.Errorf("database user is required (use --user flag or DMUSER environment variable)")
		}
		if *passwordPtr == "" {
			return fmt.Errorf("database password is required (use --password flag or DMPASSWORD environment variable)")
		}
		if schemaPtr != nil && *schemaPtr == "" {
			return fmt.Errorf("schema is required (use --schema flag or DMSCHEMA environment variable)")
		}
		return nil
	}
}
