package server

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amachie/folio/server/auth"
	"github.com/amachie/folio/server/auth/key"
	"github.com/amachie/folio/server/models"
	"github.com/amachie/folio/server/reconciler"
	"github.com/amachie/folio/version"
	"github.com/golang-jwt/jwt"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

const TOKEN_TTL_HOURS = 24

// ---------------------------------------------------------------------------------//
// Newsletter handlers
// --------------------------------------------------------------------------------//

func subscribeHandler(rw http.ResponseWriter, r *http.Request) {
	submission := reconciler.Submission{}
	err := json.NewDecoder(r.Body).Decode(&submission)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	errs := validate.Struct(submission)
	if errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	result, err := reconciler.Subscribe(submission)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if result.Conflict {
		writeResponse(rw, ResponsePayload{
			Errors: []string{conflictErrMsg(result)},
			Data: map[string]interface{}{
				"email_exists": result.EmailExists,
				"phone_exists": result.PhoneExists,
			},
		}, http.StatusConflict)
		return
	}

	enqueueWelcomeMessage(result.Subscriber)
	writeResponse(rw, ResponsePayload{Success: true, Data: result.Subscriber}, http.StatusCreated)
}

func reconcileSubscriptionHandler(rw http.ResponseWriter, r *http.Request) {
	submission := reconciler.Submission{}
	err := json.NewDecoder(r.Body).Decode(&submission)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	errs := validate.Struct(submission)
	if errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	result, err := reconciler.Reconcile(submission, models.NEWSLETTER_FORM_SOURCE)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	statusCode := http.StatusOK
	if result.Created {
		statusCode = http.StatusCreated
		enqueueWelcomeMessage(result.Subscriber)
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: map[string]interface{}{
		"subscriber":           result.Subscriber,
		"created":              result.Created,
		"updated":              result.Updated,
		"updated_fields":       result.UpdatedFields,
		"existing_data":        result.ExistingData,
		"formerly_conflicting": result.FormerlyConflicting,
	}}, statusCode)
}

func unsubscribeHandler(rw http.ResponseWriter, r *http.Request) {
	setSubscriptionStatus(rw, r, false)
}

func resubscribeHandler(rw http.ResponseWriter, r *http.Request) {
	setSubscriptionStatus(rw, r, true)
}

func setSubscriptionStatus(rw http.ResponseWriter, r *http.Request, active bool) {
	data := make(map[string]string)
	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if validate.Var(data["email"], "required,email") != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"a valid 'email' is required"}}, http.StatusBadRequest)
		return
	}

	subscriber, err := reconciler.SetActive(data["email"], active, models.NEWSLETTER_FORM_SOURCE)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"no subscription found for the given email"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: subscriber}, http.StatusOK)
}

func listSubscribersHandler(rw http.ResponseWriter, r *http.Request) {
	subscribers, paging, err := models.FetchSubscribers(pageFromQuery(r))
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"subscribers": subscribers, "paging": paging},
	})
}

func deleteSubscriberHandler(rw http.ResponseWriter, r *http.Request) {
	err := models.DeleteSubscriber(mux.Vars(r)["id"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

func exportSubscribersHandler(rw http.ResponseWriter, r *http.Request) {
	var subscribers []models.Subscriber
	var err error

	if r.URL.Query().Get("all") == "true" {
		subscribers, err = models.AllSubscribers()
	} else {
		subscribers, err = models.ActiveSubscribers()
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	csvDoc, err := models.SubscribersToCSV(subscribers)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	rw.Header().Set("Content-Type", "text/csv")
	rw.Header().Set("Content-Disposition", "attachment; filename=subscribers.csv")
	rw.Write([]byte(csvDoc))
}

func conflictErrMsg(result *reconciler.Result) string {
	switch {
	case result.EmailExists && result.PhoneExists:
		return "a subscription already exists for the given email & phone"
	case result.EmailExists:
		return "a subscription already exists for the given email"
	default:
		return "a subscription already exists for the given phone"
	}
}

// ---------------------------------------------------------------------------------//
// Blog post handlers
// --------------------------------------------------------------------------------//

func listBlogPostsHandler(rw http.ResponseWriter, r *http.Request) {
	decodedJWT := r.Context().Value(RequestContextKey("decodedJWT")).(DecodedJWT)
	includeDrafts := decodedJWT.ErrorMsg == "" && decodedJWT.Claims.IsAdmin &&
		r.URL.Query().Get("drafts") == "true"

	posts, paging, err := models.FetchBlogPosts(pageFromQuery(r), includeDrafts)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"posts": posts, "paging": paging},
	})
}

func findBlogPostHandler(rw http.ResponseWriter, r *http.Request) {
	post, err := models.FindBlogPostBy("slug", mux.Vars(r)["slug"])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	// drafts are only visible through the admin listing
	if !post.Published {
		writeResponse(rw, ResponsePayload{Errors: []string{"record not found"}}, http.StatusNotFound)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: post})
}

func createBlogPostHandler(rw http.ResponseWriter, r *http.Request) {
	post := models.BlogPost{}
	err := json.NewDecoder(r.Body).Decode(&post)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	errs := validate.Struct(post)
	if errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	err = models.CreateBlogPost(&post)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: post}, http.StatusCreated)
}

func updateBlogPostHandler(rw http.ResponseWriter, r *http.Request) {
	data := make(map[string]interface{})
	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	removeUnknownFields(data, map[string]bool{
		"title": true, "slug": true, "summary": true,
		"body": true, "tags": true, "published": true,
	})
	if len(data) <= 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{"valid fields required"}}, http.StatusBadRequest)
		return
	}

	post, err := models.FindBlogPostBy("id", mux.Vars(r)["id"])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	err = post.Update(data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

func deleteBlogPostHandler(rw http.ResponseWriter, r *http.Request) {
	err := models.DeleteBlogPost(mux.Vars(r)["id"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

// ---------------------------------------------------------------------------------//
// Project handlers
// --------------------------------------------------------------------------------//

func listProjectsHandler(rw http.ResponseWriter, r *http.Request) {
	projects, paging, err := models.FetchProjects(pageFromQuery(r))
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"projects": projects, "paging": paging},
	})
}

func findProjectHandler(rw http.ResponseWriter, r *http.Request) {
	project, err := models.FindProjectBy("id", mux.Vars(r)["id"])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: project})
}

func createProjectHandler(rw http.ResponseWriter, r *http.Request) {
	project := models.Project{}
	err := json.NewDecoder(r.Body).Decode(&project)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	errs := validate.Struct(project)
	if errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	err = models.CreateProject(&project)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: project}, http.StatusCreated)
}

func updateProjectHandler(rw http.ResponseWriter, r *http.Request) {
	data := make(map[string]interface{})
	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	removeUnknownFields(data, map[string]bool{
		"title": true, "summary": true, "description": true, "repo_url": true,
		"demo_url": true, "tech": true, "featured": true, "sort_order": true,
	})
	if len(data) <= 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{"valid fields required"}}, http.StatusBadRequest)
		return
	}

	project, err := models.FindProjectBy("id", mux.Vars(r)["id"])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	err = project.Update(data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

func deleteProjectHandler(rw http.ResponseWriter, r *http.Request) {
	err := models.DeleteProject(mux.Vars(r)["id"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

// ---------------------------------------------------------------------------------//
// Contact & service request handlers
// --------------------------------------------------------------------------------//

func createContactRequestHandler(rw http.ResponseWriter, r *http.Request) {
	request := models.ContactRequest{}
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	errs := validate.Struct(request)
	if errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	err = models.CreateContactRequest(&request)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusCreated)
}

func listContactRequestsHandler(rw http.ResponseWriter, r *http.Request) {
	requests, paging, err := models.FetchContactRequests(pageFromQuery(r))
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"contact_requests": requests, "paging": paging},
	})
}

func deleteContactRequestHandler(rw http.ResponseWriter, r *http.Request) {
	err := models.DeleteContactRequest(mux.Vars(r)["id"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

func createServiceRequestHandler(rw http.ResponseWriter, r *http.Request) {
	request := models.ServiceRequest{}
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	errs := validate.Struct(request)
	if errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	err = models.CreateServiceRequest(&request)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: request}, http.StatusCreated)
}

func listServiceRequestsHandler(rw http.ResponseWriter, r *http.Request) {
	requests, paging, err := models.FetchServiceRequests(pageFromQuery(r))
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"service_requests": requests, "paging": paging},
	})
}

func updateServiceRequestStatusHandler(rw http.ResponseWriter, r *http.Request) {
	data := make(map[string]string)
	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if !models.ServiceRequestStatusMap[data["status"]] {
		writeResponse(rw, ResponsePayload{Errors: []string{"a valid 'status' is required"}}, http.StatusBadRequest)
		return
	}

	request, err := models.FindServiceRequestBy("id", mux.Vars(r)["id"])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	err = request.UpdateStatus(data["status"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

func deleteServiceRequestHandler(rw http.ResponseWriter, r *http.Request) {
	err := models.DeleteServiceRequest(mux.Vars(r)["id"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

// ---------------------------------------------------------------------------------//
// User & auth handlers
// --------------------------------------------------------------------------------//

func createUserHandler(rw http.ResponseWriter, r *http.Request) {
	data := models.User{}
	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	errs := validate.Struct(data)
	if errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	// The very first account becomes the admin
	atLeastOneUserExists, err := models.AtLeastOneUserExists()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if !atLeastOneUserExists {
		adminRole, err := models.FindRole(models.ADMIN_USER_ROLE)
		if err != nil {
			writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
			return
		}
		data.RoleID = adminRole.ID
	}

	err = models.CreateUser(&data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusCreated)
}

func findUserHandler(rw http.ResponseWriter, r *http.Request) {
	user, err := models.FindUserBy("id", mux.Vars(r)["id"])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: user})
}

func updateUserHandler(rw http.ResponseWriter, r *http.Request) {
	var errs []string
	data := make(map[string]interface{})

	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	removeUnknownFields(data, map[string]bool{"first_name": true, "last_name": true, "password": true})
	if len(data) <= 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{"valid fields required"}}, http.StatusBadRequest)
		return
	}

	if data["password"] != nil && strings.TrimSpace(fmt.Sprintf("%v", data["password"])) == "" {
		errs = append(errs, "password cannot be empty")
	}

	if len(errs) > 0 {
		writeResponse(rw, ResponsePayload{Errors: errs}, http.StatusBadRequest)
		return
	}

	user, err := models.FindUserBy("id", mux.Vars(r)["id"])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	err = user.Update(data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

func deleteUserHandler(rw http.ResponseWriter, r *http.Request) {
	err := models.DeleteUser(mux.Vars(r)["id"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

func logInHandler(rw http.ResponseWriter, r *http.Request) {
	data := make(map[string]string)
	json.NewDecoder(r.Body).Decode(&data)

	passwordHash, err := models.FindUserPassword(data["email"])
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if !auth.CheckPasswordHash(data["password"], passwordHash) {
		writeResponse(rw, ResponsePayload{Errors: []string{"email/password is invalid"}}, http.StatusUnauthorized)
		return
	}

	user, err := models.FindUserBy("email", data["email"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	isAdmin, err := user.IsAdmin()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	token, err := auth.EncodeJWT(auth.FolioTokenClaims{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		IsAdmin:   isAdmin,
		StandardClaims: jwt.StandardClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(TOKEN_TTL_HOURS * time.Hour).Unix(),
		},
	}, authKeyPair)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: map[string]string{"token": token}})
}

func jwksHandler(rw http.ResponseWriter, r *http.Request) {
	keyPairJWK, err := authKeyPair.JWK()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(key.ExportJWKAsJWKS(keyPairJWK))
}

// ---------------------------------------------------------------------------------//
// Job & health handlers
// --------------------------------------------------------------------------------//

func jobsHandler(rw http.ResponseWriter, r *http.Request) {
	var jobs []models.Job
	var paging *models.Paging
	var err error

	status := r.URL.Query().Get("status")
	if status != "" {
		jobs, paging, err = models.FetchJobsByStatus(status, pageFromQuery(r))
	} else {
		jobs, paging, err = models.FetchJobs(pageFromQuery(r))
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	stats, err := models.CurrentJobsStats()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"jobs": jobs, "paging": paging, "stats": stats},
	})
}

func healthHandler(rw http.ResponseWriter, r *http.Request) {
	json.NewEncoder(rw).Encode(ResponsePayload{
		Success: true,
		Data:    map[string]string{"version": version.Version},
	})
}

// ---------------------------------------------------------------------------------//
// Twilio webhook handler
// --------------------------------------------------------------------------------//

// smsWebhookHandler handles inbound SMS from subscribers. 'STOP' unsubscribes
// the sender's phone number & 'START' re-subscribes it.
func smsWebhookHandler(rw http.ResponseWriter, r *http.Request) {
	if !twilioEnabled() {
		writeResponse(rw, ResponsePayload{Errors: []string{"sms webhook is not enabled"}}, http.StatusNotFound)
		return
	}

	err := r.ParseForm()
	if err != nil {
		writeErrMsgForSmsWebhook(rw, err)
		return
	}

	if !twilioClient.ValidateRequest(r.URL.Path, r.PostForm, r.Header.Get("X-Twilio-Signature")) {
		writeResponse(rw, ResponsePayload{Errors: []string{"invalid webhook signature"}}, http.StatusUnauthorized)
		return
	}

	from := r.PostForm.Get("From")
	keyword := strings.ToUpper(strings.TrimSpace(r.PostForm.Get("Body")))

	var msg string
	switch keyword {
	case "STOP":
		_, err = models.SetSubscriberActiveBy("phone", from, false, models.SMS_WEBHOOK_SOURCE)
		msg = "You've been unsubscribed from the newsletter. Reply START to re-subscribe."
	case "START", "UNSTOP":
		_, err = models.SetSubscriberActiveBy("phone", from, true, models.SMS_WEBHOOK_SOURCE)
		msg = "Welcome back! You're subscribed to the newsletter again."
	default:
		msg = "Reply STOP to unsubscribe from the newsletter, or START to re-subscribe."
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		msg = "We couldn't find a subscription for this phone number."
	} else if err != nil {
		writeErrMsgForSmsWebhook(rw, err)
		return
	}

	msgBytes, err := xml.Marshal(&TwilioSmsResponse{Message: msg})
	if err != nil {
		writeErrMsgForSmsWebhook(rw, err)
		return
	}

	writeSmsWebHookResponse(rw, msgBytes, http.StatusOK)
}
