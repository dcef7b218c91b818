package main

import (
	"fmt"

	"oidcconfig/internal/config"
	"oidcconfig/internal/property"
)

func main() {
	fmt.Println("# oidcconfig Environment Variables")
	fmt.Println()
	fmt.Println("Environment variables override values from the configuration file.")
	fmt.Println()
	fmt.Println("## Application settings")
	fmt.Println()

	for _, example := range config.EnvExample(&config.Config{}) {
		fmt.Printf("- `%s`\n", example)
	}

	fmt.Println()
	fmt.Println("## Static client settings")
	fmt.Println()
	fmt.Println("Every key of the `settings` section can be overridden by its upper-cased")
	fmt.Println("name with dots replaced by underscores:")
	fmt.Println()
	for _, key := range []string{"oidc.clientid", "oidc.secret", "oidc.xwikiprovider", "oidc.groups.mapping"} {
		fmt.Printf("- `%s` overrides `%s`\n", property.EnvName(key), key)
	}

	fmt.Println()
	fmt.Println("## Examples")
	fmt.Println()
	fmt.Println("```bash")
	fmt.Println("# Override the listen port")
	fmt.Println("export OIDCCONFIG_SERVER_PORT=9090")
	fmt.Println()
	fmt.Println("# Share sessions between instances")
	fmt.Println("export OIDCCONFIG_SESSION_BACKEND=redis")
	fmt.Println()
	fmt.Println("# Map identity provider groups")
	fmt.Println("export OIDC_GROUPS_MAPPING='XWiki.Admins=idp-admins|XWiki.Users=idp-users'")
	fmt.Println()
	fmt.Println("./oidcconfig -config oidcconfig.yaml")
	fmt.Println("```")
}
