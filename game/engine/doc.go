// Package engine provides the core rules of the Fibonacci tile game.
//
// Tiles hold terms of the sequence 1, 2, 3, 5, 8, 13, ... and two tiles
// merge when they are neighbouring terms. A move slides every tile toward
// one edge, merges at most once per tile, and adds the merged values to the
// score. After a move that changed the board a tile of value 1 (or 2, with
// the configured probability) appears in a random empty cell.
//
// Board operations (Slide, ApplyMove, SpawnTile, Evaluate) are pure and never
// modify their inputs. GameEngine wraps them with per-session state, history
// and messages for the service layer.
//
// Usage:
//
//	config, err := engine.LoadGameConfig("configs/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	changed, err := gameEngine.Move("left")
//	state := gameEngine.GetState()
package engine
