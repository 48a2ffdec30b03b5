package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aguayolabs/aguayo-api/pkg/client"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	apiURL  string
	cfgFile string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "aguayo",
	Short: "Aguayo marketplace CLI",
	Long: `aguayo is the command-line interface for the Aguayo services marketplace.

It lets you create an account, walk the onboarding wizard, browse the
service catalog, and manage your publications.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".aguayo"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if apiURL == "" {
			apiURL = viper.GetString("api_url")
		}
		if apiURL == "" {
			apiURL = "http://localhost:8080"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.aguayo/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Aguayo API base URL (default http://localhost:8080)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(publicationsCmd)
	rootCmd.AddCommand(versionCmd)
}

// authedClient builds a Client carrying the saved session token.
func authedClient() (*client.Client, error) {
	token := viper.GetString("token")
	if token == "" {
		return nil, fmt.Errorf("not logged in — run 'aguayo login' first")
	}
	return client.New(apiURL, client.WithToken(token))
}

// saveToken persists the session token to ~/.aguayo/config.yaml.
func saveToken(token string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".aguayo")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	content := fmt.Sprintf("api_url: %s\ntoken: %s\n", apiURL, token)
	return os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600)
}

// ── login / signup ───────────────────────────────────────────────────────────

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and save the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client.New(apiURL)
		if err != nil {
			return err
		}
		sess, err := c.Login(context.Background(), loginEmail, loginPassword)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		if err := saveToken(c.Token()); err != nil {
			return err
		}
		fmt.Printf("✓ Logged in as %s\n", sess.Email)
		if !sess.HasProfile {
			fmt.Println("No profile yet — run 'aguayo onboard' to complete signup")
		}
		return nil
	},
}

var (
	signupEmail    string
	signupPassword string
	signupName     string
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client.New(apiURL)
		if err != nil {
			return err
		}
		sess, err := c.Signup(context.Background(), signupEmail, signupPassword, signupName)
		if err != nil {
			return fmt.Errorf("signup: %w", err)
		}
		if err := saveToken(c.Token()); err != nil {
			return err
		}
		fmt.Printf("✓ Account created: %s\n", sess.Email)
		fmt.Println("Next: aguayo onboard")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	signupCmd.Flags().StringVar(&signupEmail, "email", "", "Account email")
	signupCmd.Flags().StringVar(&signupPassword, "password", "", "Account password (min 8 characters)")
	signupCmd.Flags().StringVar(&signupName, "name", "", "Display name")
	_ = signupCmd.MarkFlagRequired("email")
	_ = signupCmd.MarkFlagRequired("password")
}

// ── whoami ───────────────────────────────────────────────────────────────────

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authedClient()
		if err != nil {
			return err
		}
		sess, err := c.GetSession(context.Background())
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		fmt.Printf("Email:       %s\n", sess.Email)
		fmt.Printf("Name:        %s\n", sess.DisplayName)
		fmt.Printf("Has profile: %v\n", sess.HasProfile)
		if sess.HasProfile {
			fmt.Printf("Role:        %s\n", sess.Role)
			fmt.Printf("Profile ID:  %s\n", sess.ProfileID)
		}
		return nil
	},
}

// ── services ─────────────────────────────────────────────────────────────────

var servicesFormat string

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the service catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client.New(apiURL)
		if err != nil {
			return err
		}
		services, err := c.ListServices(context.Background())
		if err != nil {
			return fmt.Errorf("list services: %w", err)
		}
		if servicesFormat == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(services)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tCATEGORY")
		for _, s := range services {
			fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Title, s.Category)
		}
		return w.Flush()
	},
}

func init() {
	servicesCmd.Flags().StringVar(&servicesFormat, "format", "text", "Output format: text or json")
}

// ── onboard ──────────────────────────────────────────────────────────────────

var (
	onboardRole     string
	onboardName     string
	onboardBirth    string
	onboardPhone    string
	onboardLocation string
	onboardBio      string
	onboardServices []string
	onboardPhoto    string
	onboardIDFront  string
	onboardIDBack   string
	onboardGallery  []string
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Walk the signup wizard: role, personal data, documents",
	Long: `onboard runs the complete signup wizard in one go.

Providers must supply identity document photos and may list the services
they offer. Clients only need a profile photo:

  aguayo onboard --role CLIENT --name "Ana Pérez" --birth-date 1992-03-14 \
      --phone +59171234567 --location "La Paz" --photo ana.jpg

  aguayo onboard --role PROVIDER --name "Juan Soto" --birth-date 1988-07-02 \
      --phone +59176543210 --location "Cochabamba" \
      --service <service-uuid> --photo juan.jpg \
      --id-front front.jpg --id-back back.jpg`,
	RunE: runOnboard,
}

func init() {
	onboardCmd.Flags().StringVar(&onboardRole, "role", "", "PROVIDER or CLIENT")
	onboardCmd.Flags().StringVar(&onboardName, "name", "", "Full name")
	onboardCmd.Flags().StringVar(&onboardBirth, "birth-date", "", "Birth date (YYYY-MM-DD)")
	onboardCmd.Flags().StringVar(&onboardPhone, "phone", "", "Phone number")
	onboardCmd.Flags().StringVar(&onboardLocation, "location", "", "City or area")
	onboardCmd.Flags().StringVar(&onboardBio, "bio", "", "Short bio (optional)")
	onboardCmd.Flags().StringArrayVar(&onboardServices, "service", nil, "Offered service ID (repeatable, providers only)")
	onboardCmd.Flags().StringVar(&onboardPhoto, "photo", "", "Profile photo file")
	onboardCmd.Flags().StringVar(&onboardIDFront, "id-front", "", "ID document front photo (providers)")
	onboardCmd.Flags().StringVar(&onboardIDBack, "id-back", "", "ID document back photo (providers)")
	onboardCmd.Flags().StringArrayVar(&onboardGallery, "gallery", nil, "Work gallery photo (repeatable, providers only)")

	_ = onboardCmd.MarkFlagRequired("role")
	_ = onboardCmd.MarkFlagRequired("name")
	_ = onboardCmd.MarkFlagRequired("birth-date")
	_ = onboardCmd.MarkFlagRequired("phone")
	_ = onboardCmd.MarkFlagRequired("location")
	_ = onboardCmd.MarkFlagRequired("photo")
}

func runOnboard(cmd *cobra.Command, args []string) error {
	c, err := authedClient()
	if err != nil {
		return err
	}
	ctx := context.Background()

	// Confirm before the terminal step: the profile insert is one-shot.
	fmt.Printf("Creating a %s profile for %s\n", onboardRole, onboardName)
	fmt.Print("Proceed? [Y/n]: ")
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.TrimSpace(answer)
	if answer != "" && strings.ToLower(answer) != "y" {
		fmt.Println("Aborted.")
		return nil
	}

	draft, err := c.SelectRole(ctx, onboardRole)
	if err != nil {
		return fmt.Errorf("select role: %w", err)
	}

	draft, err = c.SubmitPersonal(ctx, draft, client.PersonalData{
		FullName:    onboardName,
		BirthDate:   onboardBirth,
		PhoneNumber: onboardPhone,
		Location:    onboardLocation,
		Bio:         onboardBio,
		ServiceIDs:  onboardServices,
	})
	if err != nil {
		return fmt.Errorf("submit personal data: %w", err)
	}

	profile, err := c.CompleteSignup(ctx, draft, client.SignupFiles{
		ProfileImage: onboardPhoto,
		IDFront:      onboardIDFront,
		IDBack:       onboardIDBack,
		Gallery:      onboardGallery,
	})
	if err != nil {
		var step *client.StepRequired
		if errors.As(err, &step) {
			return fmt.Errorf("wizard out of sync — restart from step %q", step.Step)
		}
		return fmt.Errorf("complete signup: %w", err)
	}

	fmt.Printf("\n✓ Profile created\n\n")
	fmt.Printf("  ID:   %s\n", profile.ID)
	fmt.Printf("  Role: %s\n", profile.Role)
	fmt.Printf("  Name: %s\n", profile.FullName)
	return nil
}

// ── publications ─────────────────────────────────────────────────────────────

var publicationsCmd = &cobra.Command{
	Use:   "publications",
	Short: "Browse and manage provider publications",
}

var pubListProvider string

var pubListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active publications",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client.New(apiURL)
		if err != nil {
			return err
		}
		pubs, err := c.ListPublications(context.Background(), pubListProvider)
		if err != nil {
			return fmt.Errorf("list publications: %w", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tPRICE\tTYPE")
		for _, p := range pubs {
			price := "-"
			if p.Price != nil {
				price = fmt.Sprintf("%.2f", *p.Price)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Title, price, p.PriceType)
		}
		return w.Flush()
	},
}

var (
	pubTitle       string
	pubDescription string
	pubServiceID   string
	pubPrice       float64
	pubPriceType   string
)

var pubCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Publish a service offering (providers only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authedClient()
		if err != nil {
			return err
		}
		np := client.NewPublication{
			Title:       pubTitle,
			Description: pubDescription,
			ServiceID:   pubServiceID,
			PriceType:   pubPriceType,
		}
		if cmd.Flags().Changed("price") {
			np.Price = &pubPrice
		}
		pub, err := c.CreatePublication(context.Background(), np)
		if err != nil {
			return fmt.Errorf("create publication: %w", err)
		}
		fmt.Printf("✓ Publication created: %s\n", pub.ID)
		return nil
	},
}

var pubDeleteCmd = &cobra.Command{
	Use:   "delete <publication-id>",
	Short: "Delete one of your publications",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authedClient()
		if err != nil {
			return err
		}
		if err := c.DeletePublication(context.Background(), args[0]); err != nil {
			return fmt.Errorf("delete publication: %w", err)
		}
		fmt.Println("✓ Publication deleted")
		return nil
	},
}

func init() {
	pubListCmd.Flags().StringVar(&pubListProvider, "provider", "", "Filter by provider profile ID")

	pubCreateCmd.Flags().StringVar(&pubTitle, "title", "", "Publication title")
	pubCreateCmd.Flags().StringVar(&pubDescription, "description", "", "Publication description")
	pubCreateCmd.Flags().StringVar(&pubServiceID, "service", "", "Catalog service ID")
	pubCreateCmd.Flags().Float64Var(&pubPrice, "price", 0, "Price (omit for NEGOTIABLE)")
	pubCreateCmd.Flags().StringVar(&pubPriceType, "price-type", "FIXED", "FIXED, HOURLY, or NEGOTIABLE")
	_ = pubCreateCmd.MarkFlagRequired("title")
	_ = pubCreateCmd.MarkFlagRequired("description")
	_ = pubCreateCmd.MarkFlagRequired("service")

	publicationsCmd.AddCommand(pubListCmd)
	publicationsCmd.AddCommand(pubCreateCmd)
	publicationsCmd.AddCommand(pubDeleteCmd)
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the aguayo CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("aguayo %s\n", version)
	},
}
