package utils

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var firstNames = []string{
	"Arjun", "Priya", "Ravi", "Anita", "Suresh", "Kavita", "Rajesh", "Meena",
	"Vikram", "Sunita", "Amit", "Deepa", "Manoj", "Lakshmi", "Sanjay", "Pooja",
	"Rahul", "Geeta", "Ashok", "Nisha",
}
var lastNames = []string{
	"Sharma", "Patel", "Reddy", "Nair", "Singh", "Das", "Iyer", "Gupta",
	"Kumar", "Joshi", "Verma", "Rao", "Mishra", "Pillai", "Chauhan", "Bose",
}
var departments = []string{
	"Mail Operations", "Savings Bank", "Parcel Services", "Counter Services", "Administration",
}

var digits = "0123456789"

func GenerateRandomEmployeeID() string {
	id := make([]byte, 6)
	for i := range id {
		id[i] = digits[rand.Intn(len(digits))]
	}
	return "EMP" + string(id)
}

// GenerateRandomUser builds a plausible inactive staff account for seeding.
func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	firstName := firstNames[rand.Intn(len(firstNames))]
	lastName := lastNames[rand.Intn(len(lastNames))]
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	local := strings.ToLower(firstName + "." + lastName + fmt.Sprint(rand.Intn(100)))
	user := &domain.User{
		Email:        local + "@" + emailDomainName,
		EmployeeID:   GenerateRandomEmployeeID(),
		FirstName:    firstName,
		LastName:     lastName,
		Department:   departments[rand.Intn(len(departments))],
		PasswordHash: string(passwordHash),
	}

	return user, nil
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	password := make([]rune, length)
	for i := range password {
		password[i] = letters[rand.Intn(len(letters))]
	}
	return string(password)
}

// GenerateRandomCounters produces a day of believable office activity.
func GenerateRandomCounters() domain.MetricCounters {
	return domain.MetricCounters{
		LettersDelivered:  int64(rand.Intn(500) + 50),
		ParcelsDelivered:  int64(rand.Intn(120) + 10),
		SpeedPostItems:    int64(rand.Intn(80) + 5),
		MoneyOrders:       int64(rand.Intn(40)),
		RevenueCollected:  float64(rand.Intn(50000)) + float64(rand.Intn(100))/100,
		SavingsAccounts:   int64(rand.Intn(15)),
		InsurancePolicies: int64(rand.Intn(8)),
	}
}
