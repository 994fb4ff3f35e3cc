package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amachie/folio/server/models"
	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
)

func setupServerTest() {
	models.InitializeTestDb()

	if validate == nil {
		validate = validator.New()
		RegisterValidators(validate)
	}
}

func doRequest(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody bytes.Buffer
	if body != nil {
		json.NewEncoder(&reqBody).Encode(body)
	}

	request := httptest.NewRequest(method, path, &reqBody)
	recorder := httptest.NewRecorder()
	newRouter().ServeHTTP(recorder, request)

	return recorder
}

func decodePayload(t *testing.T, recorder *httptest.ResponseRecorder) ResponsePayload {
	payload := ResponsePayload{}
	err := json.Unmarshal(recorder.Body.Bytes(), &payload)
	assert.Nil(t, err)

	return payload
}

func TestSubscribeEndpoint(t *testing.T) {
	setupServerTest()

	recorder := doRequest("POST", "/newsletter", map[string]interface{}{
		"name":  "Ada Lovelace",
		"email": "ada@example.com",
		"phone": "+14165550001",
	})
	assert.Equal(t, http.StatusCreated, recorder.Code)

	payload := decodePayload(t, recorder)
	assert.True(t, payload.Success)
}

func TestSubscribeEndpointRejectsInvalidPayload(t *testing.T) {
	setupServerTest()

	recorder := doRequest("POST", "/newsletter", map[string]interface{}{
		"name":  "Ada Lovelace",
		"phone": "+14165550001",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	payload := decodePayload(t, recorder)
	assert.NotEmpty(t, payload.Errors)
}

func TestSubscribeEndpointReportsConflicts(t *testing.T) {
	setupServerTest()

	recorder := doRequest("POST", "/newsletter", map[string]interface{}{
		"name":  "Ada",
		"email": "ada@example.com",
		"phone": "+14165550001",
	})
	assert.Equal(t, http.StatusCreated, recorder.Code)

	recorder = doRequest("POST", "/newsletter", map[string]interface{}{
		"name":  "Someone Else",
		"email": "ada@example.com",
		"phone": "+14165550099",
	})
	assert.Equal(t, http.StatusConflict, recorder.Code)

	payload := decodePayload(t, recorder)
	data := payload.Data.(map[string]interface{})
	assert.Equal(t, true, data["email_exists"])
	assert.Equal(t, false, data["phone_exists"])
}

func TestReconcileSubscriptionEndpoint(t *testing.T) {
	setupServerTest()

	recorder := doRequest("POST", "/newsletter/update", map[string]interface{}{
		"name":  "Ada",
		"email": "ada@example.com",
		"phone": "+14165550001",
	})
	assert.Equal(t, http.StatusCreated, recorder.Code)

	payload := decodePayload(t, recorder)
	data := payload.Data.(map[string]interface{})
	assert.Equal(t, false, data["existing_data"])

	recorder = doRequest("POST", "/newsletter/update", map[string]interface{}{
		"name":  "Ada Lovelace",
		"email": "ada@example.com",
		"phone": "+14165550001",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)

	payload = decodePayload(t, recorder)
	data = payload.Data.(map[string]interface{})
	assert.Equal(t, false, data["created"])
	assert.Equal(t, true, data["updated"])
	assert.Equal(t, true, data["existing_data"])
	assert.Equal(t, []interface{}{"name"}, data["updated_fields"])

	// identical resubmission is a no-op but still reports the matched record
	recorder = doRequest("POST", "/newsletter/update", map[string]interface{}{
		"name":  "Ada Lovelace",
		"email": "ada@example.com",
		"phone": "+14165550001",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)

	payload = decodePayload(t, recorder)
	data = payload.Data.(map[string]interface{})
	assert.Equal(t, false, data["updated"])
	assert.Equal(t, true, data["existing_data"])
}

func TestUnsubscribeAndResubscribeEndpoints(t *testing.T) {
	setupServerTest()

	recorder := doRequest("POST", "/newsletter", map[string]interface{}{
		"name":  "Ada",
		"email": "ada@example.com",
		"phone": "+14165550001",
	})
	assert.Equal(t, http.StatusCreated, recorder.Code)

	recorder = doRequest("POST", "/newsletter/unsubscribe", map[string]string{"email": "ada@example.com"})
	assert.Equal(t, http.StatusOK, recorder.Code)

	subscriber, err := models.FindSubscriberBy("email", "ada@example.com")
	assert.Nil(t, err)
	assert.False(t, subscriber.Active)

	recorder = doRequest("POST", "/newsletter/resubscribe", map[string]string{"email": "ada@example.com"})
	assert.Equal(t, http.StatusOK, recorder.Code)

	subscriber, err = models.FindSubscriberBy("email", "ada@example.com")
	assert.Nil(t, err)
	assert.True(t, subscriber.Active)

	recorder = doRequest("POST", "/newsletter/unsubscribe", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestFirstUserIsCreatedWithoutTokenAsAdmin(t *testing.T) {
	setupServerTest()

	recorder := doRequest("POST", "/users", map[string]string{
		"first_name": "Amara",
		"last_name":  "Chie",
		"email":      "amara@example.com",
		"password":   "super-secret",
	})
	assert.Equal(t, http.StatusCreated, recorder.Code)

	user, err := models.FindUserBy("email", "amara@example.com")
	assert.Nil(t, err)

	isAdmin, err := user.IsAdmin()
	assert.Nil(t, err)
	assert.True(t, isAdmin)

	// once a user exists, the bootstrap exception is gone
	recorder = doRequest("POST", "/users", map[string]string{
		"first_name": "Second",
		"last_name":  "User",
		"email":      "second@example.com",
		"password":   "super-secret",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestAdminRoutesRejectMissingToken(t *testing.T) {
	setupServerTest()

	recorder := doRequest("GET", "/newsletter", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = doRequest("GET", "/jobs", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestPublicBlogPostRoutesHideDrafts(t *testing.T) {
	setupServerTest()

	published := &models.BlogPost{Title: "Hello", Slug: "hello", Summary: "hi", Body: "...", Published: true}
	draft := &models.BlogPost{Title: "Draft", Slug: "draft", Summary: "wip", Body: "..."}
	assert.Nil(t, models.CreateBlogPost(published))
	assert.Nil(t, models.CreateBlogPost(draft))

	recorder := doRequest("GET", "/posts", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	payload := decodePayload(t, recorder)
	posts := payload.Data.(map[string]interface{})["posts"].([]interface{})
	assert.Len(t, posts, 1)

	recorder = doRequest("GET", "/posts/hello", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest("GET", "/posts/draft", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestHealthEndpoint(t *testing.T) {
	setupServerTest()

	recorder := doRequest("GET", "/health", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	payload := decodePayload(t, recorder)
	assert.True(t, payload.Success)
}
