package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	customermodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/customer"
	mandatemodel "github.com/mukeshbadgujar/emandate-service/internal/core/datamodel/mandate"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a demo customer and a confirmed mandate for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		deps, err := initializeDependencies()
		if err != nil {
			log.Fatalf("failed to initialize dependencies: %v", err)
		}
		defer deps.Close()

		db := deps.GormDB

		if clearData {
			fmt.Println("Clearing existing data...")
			for _, table := range []string{"webhook_events", "payments", "mandates", "customers"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
		}

		demoEmail := "asha.demo@mail.com"
		var existing customermodel.Customer
		if err := db.Where("email = ?", demoEmail).First(&existing).Error; err == nil {
			fmt.Println("demo customer already exists:", demoEmail)
			return
		}

		demoCustomer := &customermodel.Customer{
			GatewayCustomerID: "cust_demo_00000001",
			Name:              "Asha Demo",
			Email:             demoEmail,
			Contact:           "+919900000001",
		}
		if err := db.Create(demoCustomer).Error; err != nil {
			log.Fatalf("failed to seed customer: %v", err)
		}
		fmt.Println("Seeded demo customer:", demoEmail)

		now := time.Now().UTC()
		demoMandate := &mandatemodel.Mandate{
			GatewayMandateID: "mandate_demo_00000001",
			CustomerID:       demoCustomer.ID,
			AmountPaise:      49900,
			Frequency:        "monthly",
			Status:           mandatemodel.StatusConfirmed,
			ConfirmedAt:      &now,
		}
		if err := db.Create(demoMandate).Error; err != nil {
			log.Fatalf("failed to seed mandate: %v", err)
		}
		fmt.Printf("Seeded confirmed mandate %d for customer %d\n", demoMandate.ID, demoCustomer.ID)
	},
}
