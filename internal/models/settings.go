package models

// SettingsKey is the key the site settings blob is stored under.
const SettingsKey = "siteSettings"

type FeeType string

const (
	FeePercentage FeeType = "percentage"
	FeeFixed      FeeType = "fixed"
)

// SiteSettings is the single global site configuration.
type SiteSettings struct {
	SiteName                 string   `json:"siteName"`
	SiteDescription          string   `json:"siteDescription"`
	ContactEmail             string   `json:"contactEmail"`
	SupportEmail             string   `json:"supportEmail"`
	Phone                    string   `json:"phone"`
	Address                  string   `json:"address"`
	EnableRegistration       bool     `json:"enableRegistration"`
	RequireEmailVerification bool     `json:"requireEmailVerification"`
	EnableBlogSubmissions    bool     `json:"enableBlogSubmissions"`
	AutoApprovePosts         bool     `json:"autoApprovePosts"`
	MaxFileSizeMB            int      `json:"maxFileSize"`
	AllowedFileTypes         string   `json:"allowedFileTypes"`
	EmailNotifications       bool     `json:"emailNotifications"`
	SMSNotifications         bool     `json:"smsNotifications"`
	MaintenanceMode          bool     `json:"maintenanceMode"`
	ContentGuidelines        string   `json:"contentGuidelines"`
	BkashNumber              string   `json:"bkashNumber"`
	BkashMerchantNumber      string   `json:"bkashMerchantNumber"`
	BkashAgentNumber         string   `json:"bkashAgentNumber"`
	BkashPersonalNumber      string   `json:"bkashPersonalNumber"`
	PaymentInstructions      string   `json:"paymentInstructions"`
	EnablePaymentFee         bool     `json:"enablePaymentFee"`
	PaymentFeeAmount         float64  `json:"paymentFeeAmount"`
	PaymentFeeType           FeeType  `json:"paymentFeeType"`
	EnableNagadPayment       bool     `json:"enableNagadPayment"`
	NagadNumber              string   `json:"nagadNumber"`
	EnableRocketPayment      bool     `json:"enableRocketPayment"`
	RocketNumber             string   `json:"rocketNumber"`
	EnableBankTransfer       bool     `json:"enableBankTransfer"`
	BankAccountDetails       string   `json:"bankAccountDetails"`
	PaymentMethodsPriority   []string `json:"paymentMethodsPriority"`
	SMSAPIKey                string   `json:"smsApiKey"`
	DefaultUserRole          Role     `json:"defaultUserRole"`
	PasswordMinLength        int      `json:"passwordMinLength"`
	SystemTimezone           string   `json:"systemTimezone"`
	DateFormat               string   `json:"dateFormat"`
}

func DefaultSettings() SiteSettings {
	return SiteSettings{
		SiteName:                 "Explore BD",
		SiteDescription:          "Discover the Beauty of Bangladesh",
		ContactEmail:             "info@explorebd.com",
		SupportEmail:             "support@explorebd.com",
		Phone:                    "+880 1700-000000",
		Address:                  "123 Gulshan Avenue, Dhaka 1212, Bangladesh",
		EnableRegistration:       true,
		RequireEmailVerification: true,
		EnableBlogSubmissions:    true,
		AutoApprovePosts:         false,
		MaxFileSizeMB:            10,
		AllowedFileTypes:         "jpg,jpeg,png,pdf",
		EmailNotifications:       true,
		SMSNotifications:         true,
		MaintenanceMode:          false,
		ContentGuidelines:        "Please ensure your content is family-friendly and relevant to Bangladesh tourism. Include high-quality images and provide accurate information about destinations.",
		BkashNumber:              "+880 1700-000000",
		BkashMerchantNumber:      "+880 1700-000001",
		BkashAgentNumber:         "+880 1700-000002",
		BkashPersonalNumber:      "+880 1700-000000",
		PaymentInstructions:      "1. Send money to our bKash number\n2. Use 'Send Money' option\n3. Save transaction ID\n4. Upload payment screenshot or enter transaction ID\n5. Booking will be confirmed after payment verification",
		EnablePaymentFee:         false,
		PaymentFeeAmount:         2.5,
		PaymentFeeType:           FeePercentage,
		EnableNagadPayment:       true,
		NagadNumber:              "+880 1700-000003",
		EnableRocketPayment:      true,
		RocketNumber:             "+880 1700-000004",
		EnableBankTransfer:       false,
		BankAccountDetails:       "Bank: Dutch-Bangla Bank\nAccount Name: Your Company Name\nAccount Number: 1234567890\nBranch: Gulshan Branch, Dhaka",
		PaymentMethodsPriority:   []string{"bkash", "nagad", "rocket", "bank"},
		SMSAPIKey:                "",
		DefaultUserRole:          RoleUser,
		PasswordMinLength:        8,
		SystemTimezone:           "asia-dhaka",
		DateFormat:               "dd-mm-yyyy",
	}
}

// Public strips secrets before settings leave the admin surface.
func (s SiteSettings) Public() SiteSettings {
	s.SMSAPIKey = ""
	return s
}
