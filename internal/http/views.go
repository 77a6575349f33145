package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/circulation/internal/database"
	"github.com/mrlokans/circulation/internal/entities"
)

// ViewsController exposes the read-only database views. All snapshots
// are ordered by ID; credentials are never included in a response.
type ViewsController struct {
	profiles *database.ProfilesDatabase
}

func NewViewsController(profiles *database.ProfilesDatabase) *ViewsController {
	return &ViewsController{
		profiles: profiles,
	}
}

type profileView struct {
	ID               entities.ProfileID  `json:"id"`
	DisplayName      string              `json:"display_name"`
	Current          bool                `json:"current"`
	CurrentAccountID *entities.AccountID `json:"current_account_id,omitempty"`
}

type accountView struct {
	ID         entities.AccountID `json:"id"`
	ProviderID string             `json:"provider_id"`
	HasSecret  bool               `json:"has_credentials"`
}

type bookView struct {
	ID       entities.BookID `json:"id"`
	Title    string          `json:"title,omitempty"`
	HasEPUB  bool            `json:"has_epub"`
	HasCover bool            `json:"has_cover"`
}

func (controller *ViewsController) GetProfiles(c *gin.Context) {
	current, hasCurrent := controller.profiles.Current()

	profiles := controller.profiles.Profiles()
	views := make([]profileView, 0, len(profiles))
	for _, p := range profiles {
		views = append(views, profileView{
			ID:               p.ID,
			DisplayName:      p.DisplayName,
			Current:          hasCurrent && p.ID == current.ID,
			CurrentAccountID: p.CurrentAccountID,
		})
	}
	c.IndentedJSON(http.StatusOK, gin.H{"profiles": views, "count": len(views)})
}

func (controller *ViewsController) GetCurrentProfile(c *gin.Context) {
	profile, ok := controller.profiles.Current()
	if !ok {
		c.IndentedJSON(http.StatusNotFound, gin.H{"error": "no profile is current"})
		return
	}
	c.IndentedJSON(http.StatusOK, profileView{
		ID:               profile.ID,
		DisplayName:      profile.DisplayName,
		Current:          true,
		CurrentAccountID: profile.CurrentAccountID,
	})
}

func (controller *ViewsController) GetAccounts(c *gin.Context) {
	profileID, err := entities.ParseProfileID(c.Param("id"))
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	accounts, err := controller.profiles.Accounts(profileID)
	if err != nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	records := accounts.Accounts()
	views := make([]accountView, 0, len(records))
	for _, a := range records {
		views = append(views, accountView{
			ID:         a.ID,
			ProviderID: a.Provider.ID,
			HasSecret:  a.Credentials != nil,
		})
	}
	c.IndentedJSON(http.StatusOK, gin.H{"accounts": views, "count": len(views)})
}

func (controller *ViewsController) GetBooks(c *gin.Context) {
	profileID, err := entities.ParseProfileID(c.Param("id"))
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	accountID, err := entities.ParseAccountID(c.Param("aid"))
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accounts, err := controller.profiles.Accounts(profileID)
	if err != nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	books, err := accounts.Books(accountID)
	if err != nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	records := books.Books()
	views := make([]bookView, 0, len(records))
	for _, b := range records {
		views = append(views, bookView{
			ID:       b.ID,
			Title:    b.Entry.Title,
			HasEPUB:  b.HasEPUB(),
			HasCover: b.HasCover(),
		})
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": views, "count": len(views)})
}
