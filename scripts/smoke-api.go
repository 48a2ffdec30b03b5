//go:build ignore

// smoke-api.go walks the full signup → onboarding → publication flow against
// a running API instance. It creates a throwaway provider account, so point
// it at a development database only.
//
// Run with: go run scripts/smoke-api.go [base-url]
package main

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"github.com/aguayolabs/aguayo-api/pkg/client"
)

func main() {
	baseURL := "http://localhost:8080"
	if len(os.Args) > 1 {
		baseURL = os.Args[1]
	}

	if err := run(baseURL); err != nil {
		fmt.Fprintf(os.Stderr, "smoke: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nall checks passed")
}

func run(baseURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	c, err := client.New(baseURL)
	if err != nil {
		return err
	}

	// Throwaway account; the suffix keeps re-runs from colliding on email.
	email := fmt.Sprintf("smoke-%d@example.com", time.Now().UnixNano())
	fmt.Printf("signup     %s\n", email)
	if _, err := c.Signup(ctx, email, "smoke-test-pass", "Smoke Test"); err != nil {
		return fmt.Errorf("signup: %w", err)
	}

	sess, err := c.GetSession(ctx)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if sess.HasProfile {
		return fmt.Errorf("fresh account unexpectedly has a profile")
	}
	fmt.Println("session    ok (no profile yet)")

	services, err := c.ListServices(ctx)
	if err != nil {
		return fmt.Errorf("list services: %w", err)
	}
	if len(services) == 0 {
		return fmt.Errorf("catalog is empty — run cmd/seed first")
	}
	fmt.Printf("catalog    %d services\n", len(services))

	// Wizard: role → personal → documents.
	draft, err := c.SelectRole(ctx, "PROVIDER")
	if err != nil {
		return fmt.Errorf("select role: %w", err)
	}
	draft, err = c.SubmitPersonal(ctx, draft, client.PersonalData{
		FullName:    "Smoke Test Provider",
		BirthDate:   "1990-01-15",
		PhoneNumber: "+59170000000",
		Location:    "La Paz",
		ServiceIDs:  []string{services[0].ID},
	})
	if err != nil {
		return fmt.Errorf("submit personal: %w", err)
	}

	dir, err := os.MkdirTemp("", "aguayo-smoke")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	photo, err := writeTestJPEG(dir, "photo.jpg")
	if err != nil {
		return err
	}
	idFront, err := writeTestJPEG(dir, "front.jpg")
	if err != nil {
		return err
	}
	idBack, err := writeTestJPEG(dir, "back.jpg")
	if err != nil {
		return err
	}

	profile, err := c.CompleteSignup(ctx, draft, client.SignupFiles{
		ProfileImage: photo,
		IDFront:      idFront,
		IDBack:       idBack,
	})
	if err != nil {
		return fmt.Errorf("complete signup: %w", err)
	}
	fmt.Printf("onboarded  profile %s (%s)\n", profile.ID, profile.Role)

	sess, err = c.GetSession(ctx)
	if err != nil {
		return fmt.Errorf("session after onboarding: %w", err)
	}
	if !sess.HasProfile || sess.Role != "PROVIDER" {
		return fmt.Errorf("session not augmented after onboarding: %+v", sess)
	}
	fmt.Println("session    augmented with profile state")

	price := 120.0
	pub, err := c.CreatePublication(ctx, client.NewPublication{
		Title:       "Smoke test offering",
		Description: "Created by scripts/smoke-api.go",
		ServiceID:   services[0].ID,
		Price:       &price,
		PriceType:   "HOURLY",
	})
	if err != nil {
		return fmt.Errorf("create publication: %w", err)
	}
	fmt.Printf("published  %s\n", pub.ID)

	if err := c.DeletePublication(ctx, pub.ID); err != nil {
		return fmt.Errorf("delete publication: %w", err)
	}
	fmt.Println("deleted    publication soft-deleted")

	return nil
}

// writeTestJPEG writes a small valid JPEG so upload validation passes.
func writeTestJPEG(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	if err := jpeg.Encode(f, img, nil); err != nil {
		return "", err
	}
	return path, nil
}
