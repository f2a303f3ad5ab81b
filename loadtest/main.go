package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	BaseURL   = "http://localhost:8080"
	WSURL     = "ws://localhost:8080/ws"
	PairCount = 200 // Pairs of users chatting with each other
	MsgCount  = 20  // Messages per user
)

type AuthResponse struct {
	Token    string `json:"access_token"`
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type ConversationResponse struct {
	ID int `json:"id"`
}

func main() {
	log.Printf("🔥 STARTING STRESS TEST: %d users, %d messages each...", PairCount*2, MsgCount)
	var wg sync.WaitGroup

	// Pairs: user 0a matches and chats with user 0b, 1a with 1b, ...
	for i := 0; i < PairCount; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(pairID)
		}(i)
	}

	wg.Wait()
	log.Println("✅ LOAD TEST COMPLETE")
}

func runPair(pairID int) {
	userA := fmt.Sprintf("u_%d_a", pairID)
	userB := fmt.Sprintf("u_%d_b", pairID)
	pass := "password123"

	tokenA, idA := authenticate(userA, pass, "male", "female")
	tokenB, idB := authenticate(userB, pass, "female", "male")

	if tokenA == "" || tokenB == "" {
		return // Failed auth
	}

	// Mutual like: B's like should report a match.
	swipe(tokenA, idB, "like")
	swipe(tokenB, idA, "like")

	convID := createConversation(tokenA, idB)
	if convID == 0 {
		return
	}

	var wsWg sync.WaitGroup
	wsWg.Add(2)

	go spamChat(&wsWg, tokenA, convID, userA)
	go spamChat(&wsWg, tokenB, convID, userB)

	wsWg.Wait()
}

// authenticate registers (ignores error if the user exists) and logs in.
func authenticate(username, password, gender, interestedIn string) (string, int) {
	postJSON("/register", map[string]string{
		"username":      username,
		"password":      password,
		"gender":        gender,
		"interested_in": interestedIn,
	})

	resp, err := postJSON("/login", map[string]string{"username": username, "password": password})
	if err != nil {
		log.Printf("❌ Login failed [%s]: %v", username, err)
		return "", 0
	}
	defer resp.Body.Close()

	var data AuthResponse
	json.NewDecoder(resp.Body).Decode(&data)
	return data.Token, data.ID
}

func swipe(token string, targetID int, action string) {
	body, _ := json.Marshal(map[string]any{"target_id": targetID, "action": action})
	req, _ := http.NewRequest("POST", BaseURL+"/api/swipes", bytes.NewBuffer(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("❌ Swipe failed: %v", err)
		return
	}
	resp.Body.Close()
}

func createConversation(token string, targetID int) int {
	body, _ := json.Marshal(map[string]int{"target_id": targetID})
	req, _ := http.NewRequest("POST", BaseURL+"/api/conversations", bytes.NewBuffer(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil || resp.StatusCode != 200 {
		log.Printf("❌ Create conversation failed: %v", err)
		return 0
	}
	defer resp.Body.Close()

	var data ConversationResponse
	json.NewDecoder(resp.Body).Decode(&data)
	return data.ID
}

func spamChat(wg *sync.WaitGroup, token string, convID int, user string) {
	defer wg.Done()

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("%s?token=%s", WSURL, token), nil)
	if err != nil {
		log.Printf("❌ WS connect failed [%s]: %v", user, err)
		return
	}
	defer conn.Close()

	// Drain server pushes so the connection doesn't back up.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	join := map[string]any{"type": "join_conversation", "conversation_id": convID}
	if err := conn.WriteJSON(join); err != nil {
		log.Printf("❌ Join failed [%s]: %v", user, err)
		return
	}

	for i := 0; i < MsgCount; i++ {
		msg := map[string]any{
			"type":            "send_message",
			"conversation_id": convID,
			"content":         fmt.Sprintf("LoadTest msg %d from %s", i, user),
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("❌ Send failed [%s]: %v", user, err)
			break
		}
		// Small sleep to prevent an instant localhost bottleneck.
		time.Sleep(10 * time.Millisecond)
	}
	log.Printf("✅ %s finished sending %d msgs", user, MsgCount)
}

func postJSON(endpoint string, data any) (*http.Response, error) {
	body, _ := json.Marshal(data)
	return http.Post(BaseURL+endpoint, "application/json", bytes.NewBuffer(body))
}
